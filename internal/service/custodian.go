package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/repository"
)

// CustodianService serves the custodian dashboard and room management.
// Custodians only see and change data of the hostels they manage.
type CustodianService struct {
	Hostels       HostelReader
	Rooms         RoomStore
	Bookings      BookingStore
	Payments      PaymentStore
	Maintenance   MaintenanceStore
	Notifications NotificationStore
	Log           *logrus.Logger

	now func() time.Time
}

func NewCustodianService(hostels HostelReader, rooms RoomStore, bookings BookingStore, payments PaymentStore,
	maintenance MaintenanceStore, notifications NotificationStore, log *logrus.Logger) *CustodianService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CustodianService{
		Hostels:       hostels,
		Rooms:         rooms,
		Bookings:      bookings,
		Payments:      payments,
		Maintenance:   maintenance,
		Notifications: notifications,
		Log:           log,
		now:           time.Now,
	}
}

// HostelOverview is one managed hostel with its rooms.
type HostelOverview struct {
	model.Hostel
	Rooms    []model.Room `json:"rooms"`
	Beds     int          `json:"beds"`
	Occupied int          `json:"occupied"`
}

// CustodianDashboard is the custodian's landing page.
type CustodianDashboard struct {
	Hostels         []HostelOverview         `json:"hostels"`
	RecentBookings  []BookingView            `json:"recentBookings"`
	Payments        repository.PaymentTotals `json:"payments"`
	OpenMaintenance int                      `json:"openMaintenance"`
	Notifications   []model.Notification     `json:"notifications"`
}

const recentBookings = 10

// Dashboard aggregates the custodian's hostels, bookings, payment totals
// and open maintenance.
func (s *CustodianService) Dashboard(ctx context.Context, custodianID uint64) (CustodianDashboard, error) {
	hostels, err := s.Hostels.ListByCustodian(ctx, custodianID)
	if err != nil {
		return CustodianDashboard{}, err
	}
	now := s.now().UTC()
	d := CustodianDashboard{
		Hostels:       make([]HostelOverview, len(hostels)),
		Notifications: []model.Notification{},
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range hostels {
		g.Go(func() error {
			rooms, err := s.Rooms.ListByHostel(gctx, h.ID, false)
			if err != nil {
				return err
			}
			ov := HostelOverview{Hostel: h, Rooms: rooms}
			for _, r := range rooms {
				if r.IsActive {
					ov.Beds += r.Capacity
				}
				ov.Occupied += r.Occupancy
			}
			d.Hostels[i] = ov
			return nil
		})
	}
	g.Go(func() error {
		bs, err := s.Bookings.ListForCustodian(gctx, custodianID, "", recentBookings)
		if err != nil {
			return err
		}
		d.RecentBookings = views(bs, now)
		return nil
	})
	g.Go(func() error {
		t, err := s.Payments.TotalsForCustodian(gctx, custodianID)
		d.Payments = t
		return err
	})
	g.Go(func() error {
		n, err := s.Maintenance.CountOpenForCustodian(gctx, custodianID)
		d.OpenMaintenance = n
		return err
	})
	g.Go(func() error {
		if s.Notifications == nil {
			return nil
		}
		ns, err := s.Notifications.ListByUser(gctx, custodianID, dashboardNotifications)
		if err != nil {
			s.Log.WithError(err).WithField("user_id", custodianID).Warn("dashboard notifications unavailable")
			return nil
		}
		d.Notifications = ns
		return nil
	})
	if err := g.Wait(); err != nil {
		return CustodianDashboard{}, err
	}
	return d, nil
}

// RoomInput creates or updates a room.  Nil fields are left unchanged on
// update.
type RoomInput struct {
	HostelID   uint64
	RoomNumber string
	RoomType   string
	Price      *int64
	Capacity   *int
	IsActive   *bool
}

func (s *CustodianService) ownHostel(ctx context.Context, custodianID, hostelID uint64) (model.Hostel, error) {
	h, err := s.Hostels.GetByID(ctx, hostelID)
	if err != nil {
		return h, mapNotFound(err, "Hostel not found")
	}
	if h.CustodianID == nil || *h.CustodianID != custodianID {
		return h, forbidden("You do not manage this hostel")
	}
	return h, nil
}

// CreateRoom adds a room to one of the custodian's hostels.
func (s *CustodianService) CreateRoom(ctx context.Context, custodianID uint64, in RoomInput) (model.Room, error) {
	if _, err := s.ownHostel(ctx, custodianID, in.HostelID); err != nil {
		return model.Room{}, err
	}
	num := strings.TrimSpace(in.RoomNumber)
	if num == "" {
		return model.Room{}, badRequest("Room number is required")
	}
	if in.Price == nil || *in.Price <= 0 {
		return model.Room{}, badRequest("Price must be positive")
	}
	if in.Capacity == nil || *in.Capacity <= 0 {
		return model.Room{}, badRequest("Capacity must be positive")
	}
	rm := model.Room{
		HostelID:   in.HostelID,
		RoomNumber: num,
		RoomType:   strings.TrimSpace(in.RoomType),
		Price:      *in.Price,
		Capacity:   *in.Capacity,
		IsActive:   true,
	}
	if in.IsActive != nil {
		rm.IsActive = *in.IsActive
	}
	if err := s.Rooms.Create(ctx, &rm); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Room{}, conflict("Room number already exists in this hostel")
		}
		return model.Room{}, err
	}
	return rm, nil
}

// UpdateRoom changes a room in one of the custodian's hostels.  Capacity
// cannot drop below the current occupancy.
func (s *CustodianService) UpdateRoom(ctx context.Context, custodianID, roomID uint64, in RoomInput) (model.Room, error) {
	rm, err := s.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return model.Room{}, mapNotFound(err, "Room not found")
	}
	if _, err := s.ownHostel(ctx, custodianID, rm.HostelID); err != nil {
		return model.Room{}, err
	}
	if v := strings.TrimSpace(in.RoomNumber); v != "" {
		rm.RoomNumber = v
	}
	if v := strings.TrimSpace(in.RoomType); v != "" {
		rm.RoomType = v
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return model.Room{}, badRequest("Price must be positive")
		}
		rm.Price = *in.Price
	}
	if in.Capacity != nil {
		if *in.Capacity <= 0 {
			return model.Room{}, badRequest("Capacity must be positive")
		}
		if *in.Capacity < rm.Occupancy {
			return model.Room{}, conflict("Capacity cannot be below current occupancy")
		}
		rm.Capacity = *in.Capacity
	}
	if in.IsActive != nil {
		rm.IsActive = *in.IsActive
	}
	if err := s.Rooms.Update(ctx, &rm); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Room{}, conflict("Room could not be updated: number taken or capacity below occupancy")
		}
		return model.Room{}, mapNotFound(err, "Room not found")
	}
	return rm, nil
}

// ListPayments lists recent payments for the custodian's hostels.
func (s *CustodianService) ListPayments(ctx context.Context, custodianID uint64) ([]model.Payment, error) {
	return s.Payments.ListForCustodian(ctx, custodianID, 100)
}
