package model

import "time"

// PaymentMethod is how a student paid for a booking.  The string values
// are part of the public API.
type PaymentMethod string

const (
	MethodMobileMoney  PaymentMethod = "Mobile Money"
	MethodCreditCard   PaymentMethod = "Credit Card"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
)

// IsValid reports whether m is one of the supported payment methods.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodMobileMoney, MethodCreditCard, MethodBankTransfer:
		return true
	}
	return false
}

// PaymentStatus tracks a payment's settlement.  Payments processed by the
// mock gateway are Completed as soon as they are recorded.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
)

// Payment is a row in the `payments` table.  A booking has at most one
// payment and TransactionID is unique across all payments.
type Payment struct {
	ID            uint64        `json:"id"`
	BookingID     uint64        `json:"bookingId"`
	StudentID     uint64        `json:"studentId"`
	Amount        int64         `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	TransactionID string        `json:"transactionId"`
	Status        PaymentStatus `json:"status"`
	RedirectURL   *string       `json:"redirectUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	// CustodianID of the booked hostel, loaded for access checks.
	CustodianID *uint64 `json:"-"`
}
