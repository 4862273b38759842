package repository

import (
	"context"
	"database/sql"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// MaintenanceRepo persists maintenance requests.
type MaintenanceRepo struct{ db *sql.DB }

func NewMaintenanceRepo(db *sql.DB) *MaintenanceRepo { return &MaintenanceRepo{db: db} }

const maintenanceSelect = `SELECT m.id, m.student_id, m.hostel_id, m.category, m.room_number, m.description,
       m.status, m.created_at, m.updated_at
FROM maintenance_requests m`

func scanMaintenance(row interface{ Scan(...any) error }) (model.MaintenanceRequest, error) {
	var (
		m        model.MaintenanceRequest
		hostelID sql.NullInt64
		category string
		status   string
	)
	err := row.Scan(&m.ID, &m.StudentID, &hostelID, &category, &m.RoomNumber, &m.Description,
		&status, &m.CreatedAt, &m.UpdatedAt)
	m.HostelID = nullUint(hostelID)
	m.Category = model.MaintenanceCategory(category)
	m.Status = model.MaintenanceStatus(status)
	return m, err
}

func (r *MaintenanceRepo) list(ctx context.Context, query string, args ...any) ([]model.MaintenanceRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MaintenanceRequest{}
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts m with status Pending and fills ID and timestamps.
func (r *MaintenanceRepo) Create(ctx context.Context, m *model.MaintenanceRequest) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO maintenance_requests (student_id, hostel_id, category, room_number, description, status)
		 VALUES (?,?,?,?,?,?)`,
		m.StudentID, m.HostelID, string(m.Category), m.RoomNumber, m.Description, string(model.MaintenancePending))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*m = created
	return nil
}

func (r *MaintenanceRepo) GetByID(ctx context.Context, id uint64) (model.MaintenanceRequest, error) {
	m, err := scanMaintenance(r.db.QueryRowContext(ctx, maintenanceSelect+" WHERE m.id = ?", id))
	return m, errNoRows(err, ErrMaintenanceNotFound)
}

// ListByStudent returns the student's requests, newest first.
func (r *MaintenanceRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.MaintenanceRequest, error) {
	return r.list(ctx, maintenanceSelect+" WHERE m.student_id = ? ORDER BY m.created_at DESC, m.id DESC", studentID)
}

// ListForCustodian returns requests filed against the custodian's hostels.
// An empty status matches every status.
func (r *MaintenanceRepo) ListForCustodian(ctx context.Context, custodianID uint64, status model.MaintenanceStatus) ([]model.MaintenanceRequest, error) {
	q := maintenanceSelect + " JOIN hostels h ON h.id = m.hostel_id WHERE h.custodian_id = ?"
	args := []any{custodianID}
	if status != "" {
		q += " AND m.status = ?"
		args = append(args, string(status))
	}
	return r.list(ctx, q+" ORDER BY m.created_at DESC, m.id DESC", args...)
}

// CountOpenForCustodian counts requests that are not yet resolved.
func (r *MaintenanceRepo) CountOpenForCustodian(ctx context.Context, custodianID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_requests m JOIN hostels h ON h.id = m.hostel_id
		 WHERE h.custodian_id = ? AND m.status <> 'Resolved'`, custodianID).Scan(&n)
	return n, err
}

// UpdateStatus moves the request to status.
func (r *MaintenanceRepo) UpdateStatus(ctx context.Context, id uint64, status model.MaintenanceStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE maintenance_requests SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMaintenanceNotFound
	}
	return nil
}
