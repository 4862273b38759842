package repository

import (
	"context"
	"database/sql"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// PaymentRepo persists payments.  A booking has at most one payment and
// transaction ids are unique; both rules are unique keys in the schema.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentSelect = `SELECT p.id, p.booking_id, p.student_id, p.amount, p.payment_method, p.transaction_id,
       p.status, p.redirect_url, p.created_at, p.updated_at, h.custodian_id
FROM payments p
JOIN bookings b ON b.id = p.booking_id
JOIN hostels h ON h.id = b.hostel_id`

func scanPayment(row interface{ Scan(...any) error }) (model.Payment, error) {
	var (
		p         model.Payment
		method    string
		status    string
		redirect  sql.NullString
		custodian sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.BookingID, &p.StudentID, &p.Amount, &method, &p.TransactionID,
		&status, &redirect, &p.CreatedAt, &p.UpdatedAt, &custodian)
	if err != nil {
		return p, err
	}
	p.PaymentMethod = model.PaymentMethod(method)
	p.Status = model.PaymentStatus(status)
	p.RedirectURL = nullString(redirect)
	p.CustodianID = nullUint(custodian)
	return p, nil
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateTx inserts p and sets its ID.  A second payment for the same
// booking is ErrPaymentExists; a reused transaction id is
// ErrDuplicateTransaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, student_id, amount, payment_method, transaction_id, status, redirect_url)
	           VALUES (?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q, p.BookingID, p.StudentID, p.Amount, string(p.PaymentMethod),
		p.TransactionID, string(p.Status), p.RedirectURL)
	if err != nil {
		if key, dup := duplicateKey(err); dup {
			switch key {
			case "uq_payments_booking":
				return ErrPaymentExists
			case "uq_payments_txn":
				return ErrDuplicateTransaction
			}
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PaymentRepo) GetByTransactionID(ctx context.Context, txID string) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, paymentSelect+" WHERE p.transaction_id = ?", txID))
	return p, errNoRows(err, ErrPaymentNotFound)
}

// GetByTransactionIDForUpdateTx locks the payment row until tx ends.
func (r *PaymentRepo) GetByTransactionIDForUpdateTx(ctx context.Context, tx *sql.Tx, txID string) (model.Payment, error) {
	p, err := scanPayment(tx.QueryRowContext(ctx, paymentSelect+" WHERE p.transaction_id = ? FOR UPDATE OF p", txID))
	return p, errNoRows(err, ErrPaymentNotFound)
}

// ListByStudent returns the student's payments, newest first.  limit <= 0
// means no limit.
func (r *PaymentRepo) ListByStudent(ctx context.Context, studentID uint64, limit int) ([]model.Payment, error) {
	q := paymentSelect + " WHERE p.student_id = ? ORDER BY p.created_at DESC, p.id DESC"
	if limit > 0 {
		return r.list(ctx, q+" LIMIT ?", studentID, limit)
	}
	return r.list(ctx, q, studentID)
}

// ListForCustodian returns payments for bookings in the custodian's
// hostels, newest first.
func (r *PaymentRepo) ListForCustodian(ctx context.Context, custodianID uint64, limit int) ([]model.Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return r.list(ctx, paymentSelect+" WHERE h.custodian_id = ? ORDER BY p.created_at DESC, p.id DESC LIMIT ?",
		custodianID, limit)
}

// PaymentTotals aggregates a custodian's payments.
type PaymentTotals struct {
	Completed      int64 `json:"completed"`
	Pending        int64 `json:"pending"`
	CompletedCount int   `json:"completedCount"`
}

func (r *PaymentRepo) TotalsForCustodian(ctx context.Context, custodianID uint64) (PaymentTotals, error) {
	const q = `SELECT
	    COALESCE(SUM(CASE WHEN p.status = 'Completed' THEN p.amount END), 0),
	    COALESCE(SUM(CASE WHEN p.status = 'Pending' THEN p.amount END), 0),
	    COUNT(CASE WHEN p.status = 'Completed' THEN 1 END)
	FROM payments p
	JOIN bookings b ON b.id = p.booking_id
	JOIN hostels h ON h.id = b.hostel_id
	WHERE h.custodian_id = ?`
	var t PaymentTotals
	err := r.db.QueryRowContext(ctx, q, custodianID).Scan(&t.Completed, &t.Pending, &t.CompletedCount)
	return t, err
}

// UpdateStatusTx sets the payment status.
func (r *PaymentRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PaymentStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE payments SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
