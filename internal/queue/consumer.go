package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// NotificationSink stores rendered notifications.
type NotificationSink interface {
	InsertMany(ctx context.Context, ns []model.Notification) error
}

// Consumer reads BookingQueue and writes notifications.  Run keeps
// reconnecting with exponential backoff (capped at 30s) until ctx is done.
type Consumer struct {
	url  string
	sink NotificationSink
	log  *logrus.Logger
}

func NewConsumer(url string, sink NotificationSink, log *logrus.Logger) *Consumer {
	return &Consumer{url: url, sink: sink, log: log}
}

func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("booking-consumer: dial failed, retrying in %s", backoff)
			if !wait(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("booking-consumer: consume loop ended, reconnecting")
		if !wait(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("booking-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(BookingQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(BookingQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.log.WithError(err).Error("booking-consumer: handle message failed")
				// no requeue: a poison message would loop forever
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and stores its notifications.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	ns := Notifications(ev)
	if len(ns) == 0 {
		c.log.WithField("event", ev.Type).Debug("booking-consumer: no notifications for event")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.sink.InsertMany(ctx, ns); err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}
	c.log.WithFields(logrus.Fields{"event": ev.Type, "booking_id": ev.BookingID, "count": len(ns)}).Info("notifications stored")
	return nil
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
