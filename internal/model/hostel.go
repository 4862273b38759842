package model

import "time"

// Hostel is a catalog listing of an accommodation property.  A hostel is
// optionally managed by one custodian user.
type Hostel struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	Amenities   []string  `json:"amenities"`
	CustodianID *uint64   `json:"custodianId,omitempty"`
	MinPrice    int64     `json:"minPrice"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Room belongs to a hostel.  Occupancy counts the bookings currently
// holding a bed in the room and never exceeds Capacity.
type Room struct {
	ID         uint64    `json:"id"`
	HostelID   uint64    `json:"hostelId"`
	RoomNumber string    `json:"roomNumber"`
	RoomType   string    `json:"roomType"`
	Price      int64     `json:"price"`
	Capacity   int       `json:"capacity"`
	Occupancy  int       `json:"occupancy"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HasVacancy reports whether another booking can be placed in the room.
func (r Room) HasVacancy() bool {
	return r.IsActive && r.Occupancy < r.Capacity
}
