package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// RoomRepo manages rooms and their occupancy counters.
type RoomRepo struct{ db *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomCols = "id, hostel_id, room_number, room_type, price, capacity, occupancy, is_active, created_at, updated_at"

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var rm model.Room
	err := row.Scan(&rm.ID, &rm.HostelID, &rm.RoomNumber, &rm.RoomType, &rm.Price,
		&rm.Capacity, &rm.Occupancy, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt)
	return rm, err
}

func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, "SELECT "+roomCols+" FROM rooms WHERE id = ?", id))
	return rm, errNoRows(err, ErrRoomNotFound)
}

// GetForUpdateTx reads the room and locks it until tx ends.
func (r *RoomRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Room, error) {
	rm, err := scanRoom(tx.QueryRowContext(ctx, "SELECT "+roomCols+" FROM rooms WHERE id = ? FOR UPDATE", id))
	return rm, errNoRows(err, ErrRoomNotFound)
}

// GetByHostelAndNumber resolves a room by its number within a hostel.
func (r *RoomRepo) GetByHostelAndNumber(ctx context.Context, hostelID uint64, number string) (model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx,
		"SELECT "+roomCols+" FROM rooms WHERE hostel_id = ? AND room_number = ?",
		hostelID, strings.TrimSpace(number)))
	return rm, errNoRows(err, ErrRoomNotFound)
}

// ListByHostel returns every room of a hostel.  With availableOnly, rooms
// that are inactive or full are skipped.
func (r *RoomRepo) ListByHostel(ctx context.Context, hostelID uint64, availableOnly bool) ([]model.Room, error) {
	q := "SELECT " + roomCols + " FROM rooms WHERE hostel_id = ?"
	if availableOnly {
		q += " AND is_active = 1 AND occupancy < capacity"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY room_number", hostelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// Create inserts a room.  A duplicate room number within the hostel is
// ErrConflict.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO rooms (hostel_id, room_number, room_type, price, capacity, is_active) VALUES (?,?,?,?,?,?)",
		rm.HostelID, rm.RoomNumber, rm.RoomType, rm.Price, rm.Capacity, rm.IsActive)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return ErrConflict
		}
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
	*rm = created
	return nil
}

// Update changes the editable fields.  Capacity may not drop below the
// current occupancy; such an update is ErrConflict.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET room_number=?, room_type=?, price=?, capacity=?, is_active=?
		 WHERE id=? AND occupancy <= ?`,
		rm.RoomNumber, rm.RoomType, rm.Price, rm.Capacity, rm.IsActive, rm.ID, rm.Capacity)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		cur, err := r.GetByID(ctx, rm.ID)
		if err != nil {
			return err
		}
		if cur.Occupancy > rm.Capacity {
			return ErrConflict
		}
	}
	updated, err := r.GetByID(ctx, rm.ID)
	if err != nil {
		return err
	}
	*rm = updated
	return nil
}

// IncrementOccupancyTx takes one bed.  ErrRoomFull is returned when the
// room is inactive or already at capacity.
func (r *RoomRepo) IncrementOccupancyTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE rooms SET occupancy = occupancy + 1 WHERE id = ? AND is_active = 1 AND occupancy < capacity", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomFull
	}
	return nil
}

// DecrementOccupancyTx releases one bed; it never goes below zero.
func (r *RoomRepo) DecrementOccupancyTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "UPDATE rooms SET occupancy = occupancy - 1 WHERE id = ? AND occupancy > 0", id)
	return err
}
