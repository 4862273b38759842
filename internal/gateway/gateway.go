// Package gateway defines the payment gateway capability and its
// implementations: an in-process mock used by default and a Midtrans Snap
// adapter.  Both share the same input validation.
package gateway

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// PaymentGateway charges a student for a booking.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Card holds the card fields collected by the checkout form.
type Card struct {
	Number string `json:"cardNumber"`
	Expiry string `json:"expiryDate"`
	CVV    string `json:"cvv"`
	Holder string `json:"cardHolder"`
}

// ChargeRequest is one charge attempt.  Reference is our order id and is
// echoed back by gateways that settle asynchronously.
type ChargeRequest struct {
	Method         model.PaymentMethod
	Amount         int64
	Reference      string
	Description    string
	CustomerName   string
	CustomerEmail  string
	Phone          string
	Card           Card
	ProofOfPayment string
}

// ChargeResult is what the gateway reported.  RedirectURL is set when the
// student must finish the payment on the provider's page.
type ChargeResult struct {
	TransactionID string
	Status        model.PaymentStatus
	RedirectURL   string
}

// ValidationError reports a rejected payment field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// Ugandan mobile numbers: +2567XXXXXXXX, 2567XXXXXXXX or 07XXXXXXXX.
var (
	ugPhoneRe = regexp.MustCompile(`^(?:\+?256|0)7\d{8}$`)
	cardNumRe = regexp.MustCompile(`^\d{16}$`)
	cvvRe     = regexp.MustCompile(`^\d{3,4}$`)
	expiryRe  = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
)

// NormalizePhone strips spaces and dashes.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}

// ValidPhone reports whether s is a Ugandan mobile number.
func ValidPhone(s string) bool { return ugPhoneRe.MatchString(NormalizePhone(s)) }

// Validate checks the method-specific fields of req.  now is used for the
// card expiry check.
func Validate(req ChargeRequest, now time.Time) error {
	if req.Amount <= 0 {
		return invalid("amount", "must be positive")
	}
	switch req.Method {
	case model.MethodMobileMoney:
		if !ValidPhone(req.Phone) {
			return invalid("phoneNumber", "invalid mobile money number")
		}
	case model.MethodCreditCard:
		return validateCard(req.Card, now)
	case model.MethodBankTransfer:
		if strings.TrimSpace(req.ProofOfPayment) == "" {
			return invalid("proofOfPayment", "proof of payment is required")
		}
	default:
		return invalid("paymentMethod", fmt.Sprintf("unsupported method %q", req.Method))
	}
	return nil
}

func validateCard(c Card, now time.Time) error {
	num := strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
	if !cardNumRe.MatchString(num) {
		return invalid("cardNumber", "card number must have 16 digits")
	}
	m := expiryRe.FindStringSubmatch(strings.TrimSpace(c.Expiry))
	if m == nil {
		return invalid("expiryDate", "expiry must be MM/YY")
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	year += 2000
	// a card is valid through the last day of its expiry month
	if year < now.Year() || (year == now.Year() && time.Month(month) < now.Month()) {
		return invalid("expiryDate", "card has expired")
	}
	if !cvvRe.MatchString(strings.TrimSpace(c.CVV)) {
		return invalid("cvv", "cvv must be 3 or 4 digits")
	}
	return nil
}
