package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// MockGateway validates input, waits a fixed delay and approves every
// charge.  Transaction ids look like MM_<unix ms>, CARD_<unix ms> or
// BT_<unix ms>.
type MockGateway struct {
	MobileMoneyDelay time.Duration
	CardDelay        time.Duration
	Now              func() time.Time
}

func NewMockGateway(mobileMoneyDelay, cardDelay time.Duration) *MockGateway {
	return &MockGateway{MobileMoneyDelay: mobileMoneyDelay, CardDelay: cardDelay, Now: time.Now}
}

func (g *MockGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := Validate(req, g.now()); err != nil {
		return ChargeResult{}, err
	}

	var (
		prefix string
		delay  time.Duration
	)
	switch req.Method {
	case model.MethodMobileMoney:
		prefix, delay = "MM", g.MobileMoneyDelay
	case model.MethodCreditCard:
		prefix, delay = "CARD", g.CardDelay
	default:
		prefix = "BT"
	}
	if err := sleep(ctx, delay); err != nil {
		return ChargeResult{}, err
	}

	return ChargeResult{
		TransactionID: fmt.Sprintf("%s_%d", prefix, g.now().UnixMilli()),
		Status:        model.PaymentCompleted,
	}, nil
}

func (g *MockGateway) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
