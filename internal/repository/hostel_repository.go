package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// HostelRepo reads the hostel catalog.
type HostelRepo struct{ db *sql.DB }

func NewHostelRepo(db *sql.DB) *HostelRepo { return &HostelRepo{db: db} }

// HostelFilter narrows List.  Query matches name or location; Location
// matches location only.  Both are case-insensitive substring matches.
type HostelFilter struct {
	Query    string
	Location string
	Limit    int
	Offset   int
}

// min_price is the cheapest active room, 0 when the hostel has none.
const hostelSelect = `SELECT h.id, h.name, h.location, COALESCE(h.description, ''), h.amenities,
       h.custodian_id, h.created_at, h.updated_at,
       COALESCE((SELECT MIN(r.price) FROM rooms r WHERE r.hostel_id = h.id AND r.is_active = 1), 0)
FROM hostels h`

// List returns a page of hostels ordered by name and the total match count.
func (r *HostelRepo) List(ctx context.Context, f HostelFilter) ([]model.Hostel, int, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(h.name LIKE ? OR h.location LIKE ?)")
		like := "%" + escapeLike(q) + "%"
		args = append(args, like, like)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		where = append(where, "h.location LIKE ?")
		args = append(args, "%"+escapeLike(loc)+"%")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hostels h"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pageArgs := append(append([]any{}, args...), limit, f.Offset)
	rows, err := r.db.QueryContext(ctx, hostelSelect+cond+" ORDER BY h.name LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := scanHostels(rows)
	return out, total, err
}

// GetByID returns one hostel.
func (r *HostelRepo) GetByID(ctx context.Context, id uint64) (model.Hostel, error) {
	return r.getOne(ctx, hostelSelect+" WHERE h.id = ?", id)
}

// GetByName matches the hostel name exactly, ignoring case.
func (r *HostelRepo) GetByName(ctx context.Context, name string) (model.Hostel, error) {
	return r.getOne(ctx, hostelSelect+" WHERE LOWER(h.name) = LOWER(?)", strings.TrimSpace(name))
}

// ListByCustodian returns the hostels a custodian manages.
func (r *HostelRepo) ListByCustodian(ctx context.Context, custodianID uint64) ([]model.Hostel, error) {
	rows, err := r.db.QueryContext(ctx, hostelSelect+" WHERE h.custodian_id = ? ORDER BY h.name", custodianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHostels(rows)
}

func (r *HostelRepo) getOne(ctx context.Context, q string, args ...any) (model.Hostel, error) {
	rows, err := r.db.QueryContext(ctx, q+" LIMIT 1", args...)
	if err != nil {
		return model.Hostel{}, err
	}
	defer rows.Close()
	hs, err := scanHostels(rows)
	if err != nil {
		return model.Hostel{}, err
	}
	if len(hs) == 0 {
		return model.Hostel{}, ErrHostelNotFound
	}
	return hs[0], nil
}

func scanHostels(rows *sql.Rows) ([]model.Hostel, error) {
	out := []model.Hostel{}
	for rows.Next() {
		var (
			h         model.Hostel
			amenities sql.NullString
			custodian sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Location, &h.Description, &amenities,
			&custodian, &h.CreatedAt, &h.UpdatedAt, &h.MinPrice); err != nil {
			return nil, err
		}
		h.Amenities = []string{}
		if amenities.Valid && amenities.String != "" {
			if err := json.Unmarshal([]byte(amenities.String), &h.Amenities); err != nil {
				return nil, err
			}
		}
		h.CustodianID = nullUint(custodian)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
