package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/model"
)

// StudentService serves the student profile and dashboard.
type StudentService struct {
	Students      StudentStore
	Bookings      BookingStore
	Payments      PaymentStore
	Maintenance   MaintenanceStore
	Notifications NotificationStore
	Log           *logrus.Logger

	now func() time.Time
}

func NewStudentService(students StudentStore, bookings BookingStore, payments PaymentStore,
	maintenance MaintenanceStore, notifications NotificationStore, log *logrus.Logger) *StudentService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StudentService{
		Students:      students,
		Bookings:      bookings,
		Payments:      payments,
		Maintenance:   maintenance,
		Notifications: notifications,
		Log:           log,
		now:           time.Now,
	}
}

// Dashboard is everything the student dashboard shows in one response.
type Dashboard struct {
	Profile             model.Student              `json:"profile"`
	CurrentBooking      *model.Booking             `json:"currentBooking"`
	PaymentHistory      []model.Payment            `json:"paymentHistory"`
	BookingHistory      []BookingView              `json:"bookingHistory"`
	MaintenanceRequests []model.MaintenanceRequest `json:"maintenanceRequests"`
	Notifications       []model.Notification       `json:"notifications"`
}

const (
	dashboardPayments      = 5
	dashboardNotifications = 20
)

// Profile returns the student's profile.
func (s *StudentService) Profile(ctx context.Context, userID uint64) (model.Student, error) {
	st, err := s.Students.GetByUserID(ctx, userID)
	if err != nil {
		return model.Student{}, mapNotFound(err, "Student profile not found")
	}
	return st, nil
}

// UpdateProfile applies the non-empty fields of in.
func (s *StudentService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (model.Student, error) {
	st, err := s.Profile(ctx, userID)
	if err != nil {
		return model.Student{}, err
	}
	if in.Phone != "" && !gateway.ValidPhone(in.Phone) {
		return model.Student{}, badRequest("Invalid phone number")
	}
	if in.EmergencyPhone != "" && !gateway.ValidPhone(in.EmergencyPhone) {
		return model.Student{}, badRequest("Invalid emergency contact phone number")
	}
	if in.YearOfStudy < 0 || in.YearOfStudy > 10 {
		return model.Student{}, badRequest("Invalid year of study")
	}
	applyProfile(&st, in)
	st.UpdatedAt = s.now().UTC()
	if err := s.Students.Update(ctx, &st); err != nil {
		return model.Student{}, mapNotFound(err, "Student profile not found")
	}
	return st, nil
}

// Dashboard aggregates the student's profile, bookings, payments,
// maintenance requests and notifications.  The reads run concurrently and
// are not a consistent snapshot.  A failing notification feed degrades to
// an empty list instead of failing the page.
func (s *StudentService) Dashboard(ctx context.Context, userID uint64) (Dashboard, error) {
	now := s.now().UTC()
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := s.Students.GetByUserID(gctx, userID)
		if err != nil {
			return mapNotFound(err, "Student profile not found")
		}
		d.Profile = st
		return nil
	})
	g.Go(func() error {
		cur, err := s.Bookings.CurrentForStudent(gctx, userID, now)
		d.CurrentBooking = cur
		return err
	})
	g.Go(func() error {
		ps, err := s.Payments.ListByStudent(gctx, userID, dashboardPayments)
		d.PaymentHistory = ps
		return err
	})
	g.Go(func() error {
		bs, err := s.Bookings.ListByStudent(gctx, userID)
		if err != nil {
			return err
		}
		d.BookingHistory = views(bs, now)
		return nil
	})
	g.Go(func() error {
		ms, err := s.Maintenance.ListByStudent(gctx, userID)
		d.MaintenanceRequests = ms
		return err
	})
	g.Go(func() error {
		if s.Notifications == nil {
			return nil
		}
		ns, err := s.Notifications.ListByUser(gctx, userID, dashboardNotifications)
		if err != nil {
			s.Log.WithError(err).WithField("user_id", userID).Warn("dashboard notifications unavailable")
			return nil
		}
		d.Notifications = ns
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	if d.PaymentHistory == nil {
		d.PaymentHistory = []model.Payment{}
	}
	if d.BookingHistory == nil {
		d.BookingHistory = []BookingView{}
	}
	if d.MaintenanceRequests == nil {
		d.MaintenanceRequests = []model.MaintenanceRequest{}
	}
	if d.Notifications == nil {
		d.Notifications = []model.Notification{}
	}
	return d, nil
}
