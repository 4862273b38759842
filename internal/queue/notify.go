package queue

import (
	"fmt"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// Notifications renders the feed entries produced by ev: one for the
// student and, when the hostel has a custodian, one for the custodian.
func Notifications(ev Event) []model.Notification {
	where := ev.HostelName
	if ev.RoomNumber != "" {
		where = fmt.Sprintf("room %s at %s", ev.RoomNumber, ev.HostelName)
	}

	var student, custodian struct{ title, body string }
	switch ev.Type {
	case EventBookingCreated:
		student.title = "Booking confirmed"
		student.body = fmt.Sprintf("Your booking for %s is confirmed.", where)
		custodian.title = "New booking"
		custodian.body = fmt.Sprintf("A student booked %s.", where)
	case EventBookingCheckedIn:
		student.title = "Checked in"
		student.body = fmt.Sprintf("Welcome! You are checked in to %s.", where)
	case EventBookingCompleted:
		student.title = "Booking completed"
		student.body = fmt.Sprintf("Your stay in %s has ended.", where)
		custodian.title = "Room released"
		custodian.body = fmt.Sprintf("The booking for %s has completed.", where)
	case EventBookingCancelled:
		student.title = "Booking cancelled"
		student.body = fmt.Sprintf("Your booking for %s was cancelled.", where)
		if ev.Reason != "" {
			student.body += " Reason: " + ev.Reason
		}
		custodian.title = "Booking cancelled"
		custodian.body = fmt.Sprintf("The booking for %s was cancelled.", where)
	case EventPaymentCompleted:
		student.title = "Payment received"
		student.body = fmt.Sprintf("We received UGX %d (ref %s).", ev.Amount, ev.TransactionID)
		custodian.title = "Payment received"
		custodian.body = fmt.Sprintf("UGX %d received for %s.", ev.Amount, where)
	case EventPaymentFailed:
		student.title = "Payment failed"
		if ev.BookingStatus == string(model.BookingCancelled) {
			student.body = fmt.Sprintf("Payment %s did not go through and the booking was released.", ev.TransactionID)
		} else {
			student.body = fmt.Sprintf("Payment %s did not go through. Your booking for %s is unchanged.", ev.TransactionID, where)
		}
	case EventMaintenanceCreated:
		student.title = "Maintenance request received"
		student.body = fmt.Sprintf("Request #%d for %s has been logged.", ev.RequestID, where)
		custodian.title = "New maintenance request"
		custodian.body = fmt.Sprintf("Request #%d was raised for %s.", ev.RequestID, where)
	case EventMaintenanceUpdated:
		student.title = "Maintenance update"
		student.body = fmt.Sprintf("Request #%d is now %s.", ev.RequestID, ev.Status)
	default:
		return nil
	}

	out := []model.Notification{{
		UserID:    ev.StudentID,
		Kind:      string(ev.Type),
		Title:     student.title,
		Body:      student.body,
		BookingID: ev.BookingID,
		CreatedAt: ev.OccurredAt,
	}}
	if ev.CustodianID != 0 && custodian.title != "" {
		out = append(out, model.Notification{
			UserID:    ev.CustodianID,
			Kind:      string(ev.Type),
			Title:     custodian.title,
			Body:      custodian.body,
			BookingID: ev.BookingID,
			CreatedAt: ev.OccurredAt,
		})
	}
	return out
}
