package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// StudentRepo manages the `students` profile table.
type StudentRepo struct{ db *sql.DB }

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{db: db} }

// CreateTx inserts the profile for an existing STUDENT user.
func (r *StudentRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Student) error {
	const q = `INSERT INTO students (user_id, full_name, phone, gender, university, course,
	               year_of_study, student_number, emergency_name, emergency_phone, emergency_relation)
	           VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	_, err := tx.ExecContext(ctx, q, s.UserID, s.FullName, s.Phone, s.Gender, s.University, s.Course,
		s.YearOfStudy, s.StudentNumber, s.EmergencyName, s.EmergencyPhone, s.EmergencyRelation)
	return err
}

// GetByUserID loads the profile together with the account email.
func (r *StudentRepo) GetByUserID(ctx context.Context, userID uint64) (model.Student, error) {
	const q = `SELECT s.user_id, u.email, s.full_name, s.phone, s.gender, s.university, s.course,
	                  s.year_of_study, s.student_number, s.emergency_name, s.emergency_phone,
	                  s.emergency_relation, s.created_at, s.updated_at
	           FROM students s JOIN users u ON u.id = s.user_id
	           WHERE s.user_id = ?`
	var s model.Student
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&s.UserID, &s.Email, &s.FullName, &s.Phone,
		&s.Gender, &s.University, &s.Course, &s.YearOfStudy, &s.StudentNumber,
		&s.EmergencyName, &s.EmergencyPhone, &s.EmergencyRelation, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrStudentNotFound
	}
	return s, err
}

// Update overwrites the editable profile fields.
func (r *StudentRepo) Update(ctx context.Context, s *model.Student) error {
	return r.update(ctx, r.db, s)
}

// UpdateTx is Update inside the caller's transaction.
func (r *StudentRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Student) error {
	return r.update(ctx, tx, s)
}

func (r *StudentRepo) update(ctx context.Context, q querier, s *model.Student) error {
	const stmt = `UPDATE students SET full_name=?, phone=?, gender=?, university=?, course=?,
	               year_of_study=?, student_number=?, emergency_name=?, emergency_phone=?,
	               emergency_relation=?
	           WHERE user_id=?`
	res, err := q.ExecContext(ctx, stmt, s.FullName, s.Phone, s.Gender, s.University, s.Course,
		s.YearOfStudy, s.StudentNumber, s.EmergencyName, s.EmergencyPhone, s.EmergencyRelation, s.UserID)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so check existence
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := q.QueryRowContext(ctx, "SELECT 1 FROM students WHERE user_id=?", s.UserID).Scan(&one)
		return errNoRows(err, ErrStudentNotFound)
	}
	return nil
}

// LockTx takes a row lock on the student for the rest of tx.  Concurrent
// checkouts by the same student serialize here.
func (r *StudentRepo) LockTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, "SELECT user_id FROM students WHERE user_id=? FOR UPDATE", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStudentNotFound
	}
	return err
}
