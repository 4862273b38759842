package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/queue"
	"github.com/bookmyhostel/hostel-api/internal/repository"
)

// PaymentDeps lists PaymentService collaborators.
type PaymentDeps struct {
	Tx       Transactor
	Bookings BookingStore
	Rooms    RoomStore
	Payments PaymentStore
	Gateway  gateway.PaymentGateway
	Events   EventPublisher
	Log      *logrus.Logger
}

// PaymentConfig tunes PaymentService.
type PaymentConfig struct {
	MinAmount         int64
	GatewayTimeout    time.Duration
	MidtransServerKey string
}

// PaymentService records payments against existing bookings and settles
// asynchronous gateway payments from webhook notifications.
type PaymentService struct {
	PaymentDeps
	cfg PaymentConfig
	now func() time.Time
}

func NewPaymentService(d PaymentDeps, cfg PaymentConfig) *PaymentService {
	if cfg.MinAmount <= 0 {
		cfg.MinAmount = 1000
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &PaymentService{PaymentDeps: d, cfg: cfg, now: time.Now}
}

// PaymentInput is the body of a payment for an existing booking.  When
// TransactionID is empty the gateway is charged.
type PaymentInput struct {
	Amount         int64
	Method         model.PaymentMethod
	TransactionID  string
	Phone          string
	Card           gateway.Card
	ProofOfPayment string
}

// CreateForBooking pays for a booking the student owns.
func (s *PaymentService) CreateForBooking(ctx context.Context, studentID, bookingID uint64, in PaymentInput) (model.Payment, error) {
	now := s.now().UTC()
	if in.Amount < s.cfg.MinAmount {
		return model.Payment{}, badRequest(fmt.Sprintf("Amount must be at least %d", s.cfg.MinAmount))
	}
	if !in.Method.IsValid() {
		return model.Payment{}, badRequest("Invalid payment method")
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.Payment{}, mapNotFound(err, "Booking not found")
	}
	if err := checkPayable(b, studentID); err != nil {
		return model.Payment{}, err
	}
	if in.Amount != b.TotalAmount {
		return model.Payment{}, badRequest(fmt.Sprintf("Amount must equal the booking total of %d", b.TotalAmount))
	}

	p := model.Payment{
		BookingID:     b.ID,
		StudentID:     studentID,
		Amount:        in.Amount,
		PaymentMethod: in.Method,
		TransactionID: strings.TrimSpace(in.TransactionID),
		Status:        model.PaymentCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
		CustodianID:   b.CustodianID,
	}
	if p.TransactionID == "" {
		req := gateway.ChargeRequest{
			Method:         in.Method,
			Amount:         in.Amount,
			Reference:      fmt.Sprintf("BMH-%d-%d", b.ID, now.UnixMilli()),
			Description:    fmt.Sprintf("%s room %s", b.HostelName, b.RoomNumber),
			Phone:          in.Phone,
			Card:           in.Card,
			ProofOfPayment: in.ProofOfPayment,
		}
		if err := gateway.Validate(req, now); err != nil {
			return model.Payment{}, validationError(err)
		}
		chargeCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		res, err := s.Gateway.Charge(chargeCtx, req)
		cancel()
		if err != nil {
			return model.Payment{}, chargeError(s.Log, err, studentID)
		}
		p.TransactionID = res.TransactionID
		p.Status = res.Status
		if res.RedirectURL != "" {
			u := res.RedirectURL
			p.RedirectURL = &u
		}
	}

	err = s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		locked, err := s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return mapNotFound(err, "Booking not found")
		}
		if err := checkPayable(locked, studentID); err != nil {
			return err
		}
		if err := s.Payments.CreateTx(ctx, tx, &p); err != nil {
			switch {
			case errors.Is(err, repository.ErrPaymentExists):
				return badRequest("Payment already exists for this booking")
			case errors.Is(err, repository.ErrDuplicateTransaction):
				return conflict("Duplicate transaction id")
			}
			return err
		}
		return s.Bookings.SetPaymentTx(ctx, tx, bookingID, p.ID)
	})
	if err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{
			"booking_id":     bookingID,
			"transaction_id": p.TransactionID,
		}).Warn("payment not recorded")
		return model.Payment{}, err
	}
	if p.Status == model.PaymentCompleted {
		s.publish(ctx, paymentEvent(queue.EventPaymentCompleted, b, p, now))
	}
	return p, nil
}

func checkPayable(b model.Booking, studentID uint64) error {
	switch {
	case b.StudentID != studentID:
		return forbidden("Not authorized to pay for this booking")
	case b.PaymentID != nil:
		return badRequest("Payment already exists for this booking")
	case b.Status == model.BookingCancelled:
		return badRequest("Cannot pay for a cancelled booking")
	}
	return nil
}

// GetByTransaction returns a payment visible to the student who made it or
// the custodian of the booked hostel.
func (s *PaymentService) GetByTransaction(ctx context.Context, userID uint64, role, txID string) (model.Payment, error) {
	p, err := s.Payments.GetByTransactionID(ctx, strings.TrimSpace(txID))
	if err != nil {
		return model.Payment{}, mapNotFound(err, "Payment not found")
	}
	switch {
	case role == model.RoleStudent && p.StudentID == userID:
	case role == model.RoleCustodian && p.CustodianID != nil && *p.CustodianID == userID:
	default:
		return model.Payment{}, forbidden("Not authorized to view this payment")
	}
	return p, nil
}

// ListMine returns every payment the student made, newest first.
func (s *PaymentService) ListMine(ctx context.Context, studentID uint64) ([]model.Payment, error) {
	return s.Payments.ListByStudent(ctx, studentID, 0)
}

// HandleMidtransNotification settles a pending payment.  A failed payment
// cancels its booking and frees the bed.  Notifications for payments that
// are already final are ignored.
func (s *PaymentService) HandleMidtransNotification(ctx context.Context, n gateway.MidtransNotification) error {
	if !gateway.VerifyMidtransSignature(n, s.cfg.MidtransServerKey) {
		return forbidden("invalid signature")
	}
	status, final := gateway.MapMidtransStatus(n)
	log := s.Log.WithFields(logrus.Fields{
		"order_id":           n.OrderID,
		"transaction_status": n.TransactionStatus,
	})
	if !final {
		log.Debug("midtrans notification ignored")
		return nil
	}

	now := s.now().UTC()
	var (
		p       model.Payment
		b       model.Booking
		changed bool
	)
	err := s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = s.Payments.GetByTransactionIDForUpdateTx(ctx, tx, n.OrderID)
		if err != nil {
			return mapNotFound(err, "Payment not found")
		}
		if p.Status != model.PaymentPending {
			return nil
		}
		if err := s.Payments.UpdateStatusTx(ctx, tx, p.ID, status); err != nil {
			return err
		}
		p.Status = status
		changed = true

		b, err = s.Bookings.GetForUpdateTx(ctx, tx, p.BookingID)
		if err != nil {
			return err
		}
		if status != model.PaymentFailed || !b.Status.CanTransitionTo(model.BookingCancelled) {
			return nil
		}
		reason := "payment failed"
		if err := s.Bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingCancelled, &reason, now); err != nil {
			return err
		}
		if b.Status.HoldsRoom() {
			if err := s.Rooms.DecrementOccupancyTx(ctx, tx, b.RoomID); err != nil {
				return err
			}
		}
		b.Status = model.BookingCancelled
		b.CancellationReason = &reason
		b.CancelledAt = &now
		return nil
	})
	if err != nil {
		log.WithError(err).Error("midtrans notification failed")
		return err
	}
	if !changed {
		return nil
	}
	log.WithField("status", status).Info("payment settled")
	if status == model.PaymentCompleted {
		s.publish(ctx, paymentEvent(queue.EventPaymentCompleted, b, p, now))
		return nil
	}
	s.publish(ctx, paymentEvent(queue.EventPaymentFailed, b, p, now))
	if b.Status == model.BookingCancelled {
		s.publish(ctx, bookingEvent(queue.EventBookingCancelled, b, now))
	}
	return nil
}

func (s *PaymentService) publish(ctx context.Context, ev queue.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).WithField("event", ev.Type).Warn("payment event not published")
	}
}
