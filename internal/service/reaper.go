package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Completer completes bookings whose semester has ended.
type Completer interface {
	CompleteExpired(ctx context.Context) (int, error)
}

// TokenPurger deletes refresh tokens that expired before cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper runs a Completer on a cron schedule.  A run still in progress
// causes the next tick to be skipped.
type Reaper struct {
	c   *cron.Cron
	log *logrus.Logger
}

// StartReaper schedules bookings.CompleteExpired and, when tokens is not
// nil, a daily purge of expired refresh tokens, then starts the cron.
func StartReaper(schedule string, bookings Completer, tokens TokenPurger, log *logrus.Logger) (*Reaper, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(log)),
		cron.SkipIfStillRunning(cron.PrintfLogger(log)),
	))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		start := time.Now()
		n, err := bookings.CompleteExpired(ctx)
		entry := log.WithFields(logrus.Fields{"completed": n, "took": time.Since(start).String()})
		if err != nil {
			entry.WithError(err).Error("booking reaper failed")
			return
		}
		if n > 0 {
			entry.Info("booking reaper completed expired bookings")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reaper schedule %q: %w", schedule, err)
	}
	if tokens != nil {
		if _, err := c.AddFunc("@daily", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC().Add(-24*time.Hour))
			if err != nil {
				log.WithError(err).Error("refresh token purge failed")
				return
			}
			log.WithField("deleted", n).Debug("refresh tokens purged")
		}); err != nil {
			return nil, err
		}
	}
	c.Start()
	log.WithField("schedule", schedule).Info("booking reaper started")
	return &Reaper{c: c, log: log}, nil
}

// Stop stops scheduling and waits for a running job until ctx is done.
func (r *Reaper) Stop(ctx context.Context) {
	select {
	case <-r.c.Stop().Done():
	case <-ctx.Done():
		r.log.Warn("booking reaper did not stop in time")
	}
}
