package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// MidtransGateway opens a Snap transaction for card and mobile money
// payments.  The student completes the payment on the returned redirect
// URL and the final status arrives through the webhook, so charges are
// recorded as Pending.  Bank transfers never reach Midtrans: the proof of
// payment is checked by the custodian and the charge is approved locally.
type MidtransGateway struct {
	client snap.Client
	now    func() time.Time
}

func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	g := &MidtransGateway{now: time.Now}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g.client.New(serverKey, env)
	return g
}

func (g *MidtransGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := Validate(req, g.now()); err != nil {
		return ChargeResult{}, err
	}
	if req.Method == model.MethodBankTransfer {
		return ChargeResult{
			TransactionID: fmt.Sprintf("BT_%d", g.now().UnixMilli()),
			Status:        model.PaymentCompleted,
		}, nil
	}
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
			Phone: NormalizePhone(req.Phone),
		},
		Items: &[]midtrans.ItemDetails{{
			ID:       req.Reference,
			Price:    req.Amount,
			Qty:      1,
			Name:     truncate(req.Description, 50),
			Category: "Accommodation",
		}},
	}
	if req.Method == model.MethodCreditCard {
		snapReq.CreditCard = &snap.CreditCardDetails{Secure: true}
	}

	resp, merr := g.client.CreateTransaction(snapReq)
	if merr != nil {
		return ChargeResult{}, fmt.Errorf("midtrans create transaction: %s", merr.Message)
	}
	return ChargeResult{
		TransactionID: req.Reference,
		Status:        model.PaymentPending,
		RedirectURL:   resp.RedirectURL,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
