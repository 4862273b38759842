package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// BookingRepo persists bookings.  Reads join hostels and rooms so callers
// get the hostel name, room number and custodian without extra queries.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingSelect = `SELECT b.id, b.student_id, b.hostel_id, b.room_id, b.status, b.total_amount,
       b.start_date, b.end_date, b.payment_id, b.cancellation_reason, b.cancelled_at,
       b.created_at, b.updated_at, h.name, r.room_number, h.custodian_id
FROM bookings b
JOIN hostels h ON h.id = b.hostel_id
JOIN rooms r ON r.id = b.room_id`

// holdsRoom is the SQL form of BookingStatus.HoldsRoom.
const holdsRoom = "b.status IN ('BOOKED','CHECKED_IN')"

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b           model.Booking
		status      string
		paymentID   sql.NullInt64
		reason      sql.NullString
		cancelledAt sql.NullTime
		custodian   sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.StudentID, &b.HostelID, &b.RoomID, &status, &b.TotalAmount,
		&b.StartDate, &b.EndDate, &paymentID, &reason, &cancelledAt,
		&b.CreatedAt, &b.UpdatedAt, &b.HostelName, &b.RoomNumber, &custodian)
	if err != nil {
		return b, err
	}
	if st, perr := model.ParseBookingStatus(status); perr == nil {
		b.Status = st
	} else {
		b.Status = model.BookingStatus(status)
	}
	b.PaymentID = nullUint(paymentID)
	b.CancellationReason = nullString(reason)
	b.CancelledAt = nullTime(cancelledAt)
	b.CustodianID = nullUint(custodian)
	return b, nil
}

func (r *BookingRepo) list(ctx context.Context, q querier, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateTx inserts b and sets its ID.  Status, amounts and dates must be
// filled by the caller.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (student_id, hostel_id, room_id, status, total_amount, start_date, end_date)
	           VALUES (?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q, b.StudentID, b.HostelID, b.RoomID, string(b.Status),
		b.TotalAmount, b.StartDate.UTC(), b.EndDate.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ?", id))
	return b, errNoRows(err, ErrBookingNotFound)
}

// GetForUpdateTx reads the booking and locks its row until tx ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ? FOR UPDATE OF b", id))
	return b, errNoRows(err, ErrBookingNotFound)
}

// ListByStudent returns the student's bookings, newest first.
func (r *BookingRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.Booking, error) {
	return r.list(ctx, r.db, bookingSelect+" WHERE b.student_id = ? ORDER BY b.created_at DESC, b.id DESC", studentID)
}

// CurrentForStudent returns the newest booking that still holds a room and
// ends after now, or nil.
func (r *BookingRepo) CurrentForStudent(ctx context.Context, studentID uint64, now time.Time) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		bookingSelect+" WHERE b.student_id = ? AND "+holdsRoom+" AND b.end_date > ? ORDER BY b.created_at DESC, b.id DESC LIMIT 1",
		studentID, now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) hasActive(ctx context.Context, q querier, studentID uint64, now time.Time) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings b WHERE b.student_id = ? AND "+holdsRoom+" AND b.end_date > ?",
		studentID, now.UTC()).Scan(&n)
	return n > 0, err
}

// HasActive is the read-only active-booking check.
func (r *BookingRepo) HasActive(ctx context.Context, studentID uint64, now time.Time) (bool, error) {
	return r.hasActive(ctx, r.db, studentID, now)
}

// HasActiveTx repeats the check inside tx, after the student row is locked.
func (r *BookingRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, studentID uint64, now time.Time) (bool, error) {
	return r.hasActive(ctx, tx, studentID, now)
}

// SetPaymentTx links a payment to the booking.
func (r *BookingRepo) SetPaymentTx(ctx context.Context, tx *sql.Tx, bookingID, paymentID uint64) error {
	res, err := tx.ExecContext(ctx, "UPDATE bookings SET payment_id = ? WHERE id = ?", paymentID, bookingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdateStatusTx moves the booking to status.  For CANCELLED the reason and
// time are stored as well; other statuses leave them untouched.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus, reason *string, at time.Time) error {
	var (
		res sql.Result
		err error
	)
	if status == model.BookingCancelled {
		res, err = tx.ExecContext(ctx,
			"UPDATE bookings SET status = ?, cancellation_reason = ?, cancelled_at = ? WHERE id = ?",
			string(status), reason, at.UTC(), id)
	} else {
		res, err = tx.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ?", string(status), id)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListExpired returns up to limit bookings still holding a room whose end
// date is not after now.
func (r *BookingRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	return r.list(ctx, r.db,
		bookingSelect+" WHERE "+holdsRoom+" AND b.end_date <= ? ORDER BY b.end_date LIMIT ?",
		now.UTC(), limit)
}

// ListForCustodian returns bookings in hostels managed by custodianID,
// newest first.  An empty status matches every status.
func (r *BookingRepo) ListForCustodian(ctx context.Context, custodianID uint64, status model.BookingStatus, limit int) ([]model.Booking, error) {
	q := bookingSelect + " WHERE h.custodian_id = ?"
	args := []any{custodianID}
	if status != "" {
		q += " AND b.status = ?"
		args = append(args, string(status))
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q += " ORDER BY b.created_at DESC, b.id DESC LIMIT ?"
	args = append(args, limit)
	return r.list(ctx, r.db, q, args...)
}
