package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/queue"
)

// MaintenanceService handles maintenance requests raised by students and
// worked by custodians.
type MaintenanceService struct {
	Requests MaintenanceStore
	Bookings BookingStore
	Hostels  HostelReader
	Events   EventPublisher
	Log      *logrus.Logger

	now func() time.Time
}

func NewMaintenanceService(requests MaintenanceStore, bookings BookingStore, hostels HostelReader,
	events EventPublisher, log *logrus.Logger) *MaintenanceService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MaintenanceService{Requests: requests, Bookings: bookings, Hostels: hostels, Events: events, Log: log, now: time.Now}
}

// MaintenanceInput is a new request from a student.
type MaintenanceInput struct {
	Category    string
	RoomNumber  string
	Description string
}

const maxDescription = 2000

// Create logs a request.  The hostel is taken from the student's current
// booking, and the room number defaults to the booked room.
func (s *MaintenanceService) Create(ctx context.Context, studentID uint64, in MaintenanceInput) (model.MaintenanceRequest, error) {
	cat, ok := model.ParseMaintenanceCategory(in.Category)
	if !ok {
		return model.MaintenanceRequest{}, badRequest("Invalid maintenance category")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return model.MaintenanceRequest{}, badRequest("Description is required")
	}
	if len(desc) > maxDescription {
		return model.MaintenanceRequest{}, badRequest("Description is too long")
	}

	now := s.now().UTC()
	cur, err := s.Bookings.CurrentForStudent(ctx, studentID, now)
	if err != nil {
		return model.MaintenanceRequest{}, err
	}
	m := model.MaintenanceRequest{
		StudentID:   studentID,
		Category:    cat,
		RoomNumber:  strings.TrimSpace(in.RoomNumber),
		Description: desc,
	}
	ev := queue.Event{Type: queue.EventMaintenanceCreated, StudentID: studentID, OccurredAt: now}
	if cur != nil {
		m.HostelID = &cur.HostelID
		if m.RoomNumber == "" {
			m.RoomNumber = cur.RoomNumber
		}
		ev.BookingID = cur.ID
		ev.HostelID = cur.HostelID
		ev.HostelName = cur.HostelName
		if cur.CustodianID != nil {
			ev.CustodianID = *cur.CustodianID
		}
	}
	if m.RoomNumber == "" {
		return model.MaintenanceRequest{}, badRequest("Room number is required")
	}
	if err := s.Requests.Create(ctx, &m); err != nil {
		return model.MaintenanceRequest{}, err
	}

	ev.RoomNumber = m.RoomNumber
	ev.RequestID = m.ID
	ev.Status = string(m.Status)
	s.publish(ctx, ev)
	return m, nil
}

// ListMine returns the student's requests, newest first.
func (s *MaintenanceService) ListMine(ctx context.Context, studentID uint64) ([]model.MaintenanceRequest, error) {
	return s.Requests.ListByStudent(ctx, studentID)
}

// ListForCustodian returns requests raised in the custodian's hostels,
// optionally filtered by status.
func (s *MaintenanceService) ListForCustodian(ctx context.Context, custodianID uint64, status string) ([]model.MaintenanceRequest, error) {
	var st model.MaintenanceStatus
	if strings.TrimSpace(status) != "" {
		parsed, ok := model.ParseMaintenanceStatus(status)
		if !ok {
			return nil, badRequest("Invalid maintenance status")
		}
		st = parsed
	}
	return s.Requests.ListForCustodian(ctx, custodianID, st)
}

// UpdateStatus moves a request forward.  Only the custodian of the
// request's hostel may do so.
func (s *MaintenanceService) UpdateStatus(ctx context.Context, custodianID, id uint64, status string) (model.MaintenanceRequest, error) {
	to, ok := model.ParseMaintenanceStatus(status)
	if !ok {
		return model.MaintenanceRequest{}, badRequest("Invalid maintenance status")
	}
	m, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		return model.MaintenanceRequest{}, mapNotFound(err, "Maintenance request not found")
	}
	if m.HostelID == nil {
		return model.MaintenanceRequest{}, forbidden("Request is not in one of your hostels")
	}
	h, err := s.Hostels.GetByID(ctx, *m.HostelID)
	if err != nil {
		return model.MaintenanceRequest{}, mapNotFound(err, "Hostel not found")
	}
	if h.CustodianID == nil || *h.CustodianID != custodianID {
		return model.MaintenanceRequest{}, forbidden("Request is not in one of your hostels")
	}
	if m.Status == to {
		return m, nil
	}
	if !m.Status.CanTransitionTo(to) {
		return model.MaintenanceRequest{}, conflict("Request is " + string(m.Status) + " and cannot become " + string(to))
	}
	if err := s.Requests.UpdateStatus(ctx, id, to); err != nil {
		return model.MaintenanceRequest{}, mapNotFound(err, "Maintenance request not found")
	}
	now := s.now().UTC()
	m.Status = to
	m.UpdatedAt = now

	s.publish(ctx, queue.Event{
		Type:        queue.EventMaintenanceUpdated,
		StudentID:   m.StudentID,
		HostelID:    h.ID,
		CustodianID: custodianID,
		HostelName:  h.Name,
		RoomNumber:  m.RoomNumber,
		RequestID:   m.ID,
		Status:      string(to),
		OccurredAt:  now,
	})
	return m, nil
}

func (s *MaintenanceService) publish(ctx context.Context, ev queue.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{"event": ev.Type, "request_id": ev.RequestID}).
			Warn("maintenance event not published")
	}
}
