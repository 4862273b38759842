// Package queue carries booking, payment and maintenance events over
// RabbitMQ.  The API
// publishes them after each committed change; the consumer turns them into
// notifications for the student and the hostel custodian.
package queue

import "time"

// BookingQueue is the durable queue every event is published to.
const BookingQueue = "booking.events"

// EventType names a lifecycle change.
type EventType string

const (
	EventBookingCreated     EventType = "booking.created"
	EventBookingCheckedIn   EventType = "booking.checked_in"
	EventBookingCompleted   EventType = "booking.completed"
	EventBookingCancelled   EventType = "booking.cancelled"
	EventPaymentCompleted   EventType = "payment.completed"
	EventPaymentFailed      EventType = "payment.failed"
	EventMaintenanceCreated EventType = "maintenance.created"
	EventMaintenanceUpdated EventType = "maintenance.updated"
)

// Event holds enough denormalized data for consumers to act without
// querying MySQL.  BookingID is zero for maintenance requests raised
// without a current booking; RequestID is set only on maintenance events.
type Event struct {
	Type          EventType `json:"type"`
	BookingID     uint64    `json:"booking_id,omitempty"`
	StudentID     uint64    `json:"student_id"`
	HostelID      uint64    `json:"hostel_id,omitempty"`
	CustodianID   uint64    `json:"custodian_id,omitempty"`
	HostelName    string    `json:"hostel_name,omitempty"`
	RoomNumber    string    `json:"room_number,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestID     uint64    `json:"request_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	BookingStatus string    `json:"booking_status,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
