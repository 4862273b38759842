package repository

import (
	"context"
	"database/sql"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// FavoriteRepo stores the hostels a student has saved.
type FavoriteRepo struct{ db *sql.DB }

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Add is idempotent.
func (r *FavoriteRepo) Add(ctx context.Context, studentID, hostelID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT IGNORE INTO favorites (student_id, hostel_id) VALUES (?, ?)", studentID, hostelID)
	return err
}

// Remove reports whether a favorite was deleted.
func (r *FavoriteRepo) Remove(ctx context.Context, studentID, hostelID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE student_id = ? AND hostel_id = ?", studentID, hostelID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// List returns the saved hostels, most recently saved first.
func (r *FavoriteRepo) List(ctx context.Context, studentID uint64) ([]model.Hostel, error) {
	rows, err := r.db.QueryContext(ctx,
		hostelSelect+" JOIN favorites f ON f.hostel_id = h.id WHERE f.student_id = ? ORDER BY f.created_at DESC",
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHostels(rows)
}
