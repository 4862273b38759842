package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// MidtransNotification is the HTTP notification Midtrans posts when a
// transaction changes state.
type MidtransNotification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
}

// VerifyMidtransSignature checks
// SHA512(order_id + status_code + gross_amount + server_key).
func VerifyMidtransSignature(n MidtransNotification, serverKey string) bool {
	if n.SignatureKey == "" || serverKey == "" {
		return false
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.SignatureKey))) == 1
}

// MapMidtransStatus translates a notification into a payment status.  The
// second result is false for statuses that do not settle the payment.
func MapMidtransStatus(n MidtransNotification) (model.PaymentStatus, bool) {
	switch strings.ToLower(n.TransactionStatus) {
	case "capture":
		if strings.EqualFold(n.FraudStatus, "challenge") {
			return model.PaymentPending, false
		}
		return model.PaymentCompleted, true
	case "settlement":
		return model.PaymentCompleted, true
	case "deny", "cancel", "expire", "failure":
		return model.PaymentFailed, true
	}
	return model.PaymentPending, false
}
