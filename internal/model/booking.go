package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.  Older clients sent
// several spellings for the same state ("Booked", "active", "cancelled",
// "Checked-in"); ParseBookingStatus folds all of them onto these values.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "BOOKED"
	BookingCheckedIn BookingStatus = "CHECKED_IN"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// bookingTransitions is the booking state machine.  COMPLETED and
// CANCELLED are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingBooked:    {BookingCheckedIn, BookingCompleted, BookingCancelled},
	BookingCheckedIn: {BookingCompleted, BookingCancelled},
	BookingCompleted: {},
	BookingCancelled: {},
}

// legacyBookingStatus maps lower-cased spellings seen in stored data and
// client payloads to the canonical status.
var legacyBookingStatus = map[string]BookingStatus{
	"booked":     BookingBooked,
	"active":     BookingBooked,
	"pending":    BookingBooked,
	"confirmed":  BookingBooked,
	"checked-in": BookingCheckedIn,
	"checked_in": BookingCheckedIn,
	"checkedin":  BookingCheckedIn,
	"completed":  BookingCompleted,
	"complete":   BookingCompleted,
	"cancelled":  BookingCancelled,
	"canceled":   BookingCancelled,
}

// ParseBookingStatus normalizes s into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if st, ok := legacyBookingStatus[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("invalid booking status: %q", s)
}

// IsValid reports whether s is one of the canonical statuses.
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	next, ok := bookingTransitions[s]
	return !ok || len(next) == 0
}

// HoldsRoom reports whether a booking in this status occupies a bed.
func (s BookingStatus) HoldsRoom() bool {
	return s == BookingBooked || s == BookingCheckedIn
}

// Booking records a student's reservation of a room for one semester.
// Rows live in the `bookings` table; HostelName, RoomNumber and
// CustodianID are filled by queries that join hostels and rooms.
type Booking struct {
	ID                 uint64        `json:"id"`
	StudentID          uint64        `json:"studentId"`
	HostelID           uint64        `json:"hostelId"`
	RoomID             uint64        `json:"roomId"`
	Status             BookingStatus `json:"status"`
	TotalAmount        int64         `json:"totalAmount"`
	StartDate          time.Time     `json:"startDate"`
	EndDate            time.Time     `json:"endDate"`
	PaymentID          *uint64       `json:"paymentId,omitempty"`
	CancellationReason *string       `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time    `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`

	HostelName  string  `json:"hostelName,omitempty"`
	RoomNumber  string  `json:"roomNumber,omitempty"`
	CustodianID *uint64 `json:"-"`
}

// IsActive reports whether the booking still counts against the
// one-active-booking rule at the given instant: it holds a room and its
// semester has not ended.
func (b Booking) IsActive(now time.Time) bool {
	return b.Status.HoldsRoom() && b.EndDate.After(now)
}
