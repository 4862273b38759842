package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/lock"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/queue"
	"github.com/bookmyhostel/hostel-api/internal/repository"
)

// BookingConfig tunes BookingService.
type BookingConfig struct {
	SemesterMonths int
	GatewayTimeout time.Duration
}

// BookingDeps lists BookingService collaborators.
type BookingDeps struct {
	Tx       Transactor
	Students StudentStore
	Hostels  HostelReader
	Rooms    RoomStore
	Bookings BookingStore
	Payments PaymentStore
	Gateway  gateway.PaymentGateway
	Locker   lock.Locker
	Events   EventPublisher
	Log      *logrus.Logger
}

// BookingService creates, checks out, cancels and completes bookings.  A
// student holds at most one active booking; the rule is checked before the
// gateway is charged and again under the student's row lock.
type BookingService struct {
	BookingDeps
	cfg BookingConfig
	now func() time.Time
}

func NewBookingService(d BookingDeps, cfg BookingConfig) *BookingService {
	if cfg.SemesterMonths <= 0 {
		cfg.SemesterMonths = 4
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	if d.Locker == nil {
		d.Locker = lock.Nop{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &BookingService{BookingDeps: d, cfg: cfg, now: time.Now}
}

// BookingView is a booking annotated with whether it is currently active.
type BookingView struct {
	model.Booking
	IsActive bool `json:"isActive"`
}

// RoomRef names the room to book either by ids or by hostel name and room
// number.  Ids win when both are given.
type RoomRef struct {
	HostelID   uint64
	HostelName string
	RoomID     uint64
	RoomNumber string
}

// ProfileInput carries the booking form's contact, academic and emergency
// blocks.  Empty fields leave the stored profile unchanged.
type ProfileInput struct {
	FullName          string
	Phone             string
	Gender            string
	University        string
	Course            string
	YearOfStudy       int
	StudentNumber     string
	EmergencyName     string
	EmergencyPhone    string
	EmergencyRelation string
}

// CheckoutInput is the full booking form plus payment details.
type CheckoutInput struct {
	Room           RoomRef
	Profile        *ProfileInput
	PaymentMethod  model.PaymentMethod
	Phone          string
	Card           gateway.Card
	ProofOfPayment string
}

// CheckoutResult is the committed booking and its payment.
type CheckoutResult struct {
	Booking     model.Booking `json:"booking"`
	Payment     model.Payment `json:"payment"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
}

const activeBookingMsg = "You already have an active booking. Cancel it or wait for it to end before booking again."

func (s *BookingService) resolve(ctx context.Context, ref RoomRef) (model.Hostel, model.Room, error) {
	var (
		hostel model.Hostel
		room   model.Room
		err    error
	)
	switch {
	case ref.RoomID != 0:
		room, err = s.Rooms.GetByID(ctx, ref.RoomID)
		if err != nil {
			return hostel, room, mapNotFound(err, "Room not found")
		}
		if ref.HostelID != 0 && ref.HostelID != room.HostelID {
			return hostel, room, notFound("Room not found in this hostel")
		}
		hostel, err = s.Hostels.GetByID(ctx, room.HostelID)
		if err != nil {
			return hostel, room, mapNotFound(err, "Hostel not found")
		}
	case strings.TrimSpace(ref.RoomNumber) != "":
		if ref.HostelID != 0 {
			hostel, err = s.Hostels.GetByID(ctx, ref.HostelID)
		} else if strings.TrimSpace(ref.HostelName) != "" {
			hostel, err = s.Hostels.GetByName(ctx, ref.HostelName)
		} else {
			return hostel, room, badRequest("hostelId or hostelName is required")
		}
		if err != nil {
			return hostel, room, mapNotFound(err, "Hostel not found")
		}
		room, err = s.Rooms.GetByHostelAndNumber(ctx, hostel.ID, ref.RoomNumber)
		if err != nil {
			return hostel, room, mapNotFound(err, "Room not found")
		}
	default:
		return hostel, room, badRequest("roomId or roomNumber is required")
	}
	return hostel, room, nil
}

func (s *BookingService) ensureNoActive(ctx context.Context, studentID uint64, now time.Time) error {
	active, err := s.Bookings.HasActive(ctx, studentID, now)
	if err != nil {
		return err
	}
	if active {
		return conflict(activeBookingMsg)
	}
	return nil
}

// reserveTx locks the student, re-checks the active rule and the room, then
// inserts the booking and takes a bed.
func (s *BookingService) reserveTx(ctx context.Context, tx *sql.Tx, b *model.Booking, now time.Time) error {
	if err := s.Students.LockTx(ctx, tx, b.StudentID); err != nil {
		return mapNotFound(err, "Student profile not found")
	}
	active, err := s.Bookings.HasActiveTx(ctx, tx, b.StudentID, now)
	if err != nil {
		return err
	}
	if active {
		return conflict(activeBookingMsg)
	}
	room, err := s.Rooms.GetForUpdateTx(ctx, tx, b.RoomID)
	if err != nil {
		return mapNotFound(err, "Room not found")
	}
	if !room.HasVacancy() {
		return conflict("Room is fully booked")
	}
	if err := s.Bookings.CreateTx(ctx, tx, b); err != nil {
		return err
	}
	if err := s.Rooms.IncrementOccupancyTx(ctx, tx, b.RoomID); err != nil {
		if errors.Is(err, repository.ErrRoomFull) {
			return conflict("Room is fully booked")
		}
		return err
	}
	return nil
}

func (s *BookingService) newBooking(studentID uint64, hostel model.Hostel, room model.Room, now time.Time) model.Booking {
	return model.Booking{
		StudentID:   studentID,
		HostelID:    hostel.ID,
		RoomID:      room.ID,
		Status:      model.BookingBooked,
		TotalAmount: room.Price,
		StartDate:   now,
		EndDate:     now.AddDate(0, s.cfg.SemesterMonths, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
		HostelName:  hostel.Name,
		RoomNumber:  room.RoomNumber,
		CustodianID: hostel.CustodianID,
	}
}

// Create books a room without taking payment.
func (s *BookingService) Create(ctx context.Context, studentID uint64, ref RoomRef) (model.Booking, error) {
	now := s.now().UTC()
	hostel, room, err := s.resolve(ctx, ref)
	if err != nil {
		return model.Booking{}, err
	}
	if !room.HasVacancy() {
		return model.Booking{}, conflict("Room is fully booked")
	}
	if err := s.ensureNoActive(ctx, studentID, now); err != nil {
		return model.Booking{}, err
	}

	b := s.newBooking(studentID, hostel, room, now)
	if err := s.Tx.InTx(ctx, func(tx *sql.Tx) error { return s.reserveTx(ctx, tx, &b, now) }); err != nil {
		return model.Booking{}, err
	}
	s.publish(ctx, bookingEvent(queue.EventBookingCreated, b, now))
	return b, nil
}

// Checkout books a room and pays for it in one step.  The gateway is
// charged before the database transaction; if the transaction then fails
// the charge is logged with its transaction id for reconciliation.
func (s *BookingService) Checkout(ctx context.Context, studentID uint64, in CheckoutInput) (CheckoutResult, error) {
	now := s.now().UTC()
	if !in.PaymentMethod.IsValid() {
		return CheckoutResult{}, badRequest("Invalid payment method")
	}
	hostel, room, err := s.resolve(ctx, in.Room)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !room.HasVacancy() {
		return CheckoutResult{}, conflict("Room is fully booked")
	}

	student, err := s.Students.GetByUserID(ctx, studentID)
	if err != nil {
		return CheckoutResult{}, mapNotFound(err, "Student profile not found")
	}
	if in.Profile != nil {
		applyProfile(&student, *in.Profile)
	}

	charge := gateway.ChargeRequest{
		Method:         in.PaymentMethod,
		Amount:         room.Price,
		Reference:      "BMH-" + uuid.NewString(),
		Description:    fmt.Sprintf("%s room %s", hostel.Name, room.RoomNumber),
		CustomerName:   student.FullName,
		CustomerEmail:  student.Email,
		Phone:          in.Phone,
		Card:           in.Card,
		ProofOfPayment: in.ProofOfPayment,
	}
	if err := gateway.Validate(charge, now); err != nil {
		return CheckoutResult{}, validationError(err)
	}

	if err := s.ensureNoActive(ctx, studentID, now); err != nil {
		return CheckoutResult{}, err
	}
	release, err := s.Locker.Acquire(ctx, fmt.Sprintf("checkout:student:%d", studentID), s.cfg.GatewayTimeout+30*time.Second)
	switch {
	case errors.Is(err, lock.ErrLocked):
		return CheckoutResult{}, conflict("A booking for this account is already in progress")
	case err != nil:
		// the row lock below still serializes checkouts
		s.Log.WithError(err).Warn("checkout lock unavailable")
		release = func() {}
	}
	defer release()

	chargeCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	res, err := s.Gateway.Charge(chargeCtx, charge)
	cancel()
	if err != nil {
		return CheckoutResult{}, chargeError(s.Log, err, studentID)
	}

	log := s.Log.WithFields(logrus.Fields{
		"student_id":     studentID,
		"room_id":        room.ID,
		"transaction_id": res.TransactionID,
		"amount":         room.Price,
	})

	b := s.newBooking(studentID, hostel, room, now)
	p := model.Payment{
		StudentID:     studentID,
		Amount:        room.Price,
		PaymentMethod: in.PaymentMethod,
		TransactionID: res.TransactionID,
		Status:        res.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
		CustodianID:   hostel.CustodianID,
	}
	if res.RedirectURL != "" {
		u := res.RedirectURL
		p.RedirectURL = &u
	}

	err = s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		if in.Profile != nil {
			if err := s.Students.UpdateTx(ctx, tx, &student); err != nil {
				return err
			}
		}
		if err := s.reserveTx(ctx, tx, &b, now); err != nil {
			return err
		}
		p.BookingID = b.ID
		if err := s.Payments.CreateTx(ctx, tx, &p); err != nil {
			if errors.Is(err, repository.ErrDuplicateTransaction) {
				return conflict("Duplicate transaction id")
			}
			return err
		}
		if err := s.Bookings.SetPaymentTx(ctx, tx, b.ID, p.ID); err != nil {
			return err
		}
		b.PaymentID = &p.ID
		return nil
	})
	if err != nil {
		log.WithError(err).Error("checkout failed after successful charge, reconcile transaction")
		if se, ok := AsError(err); ok && se.Status == http.StatusConflict {
			return CheckoutResult{}, se
		}
		return CheckoutResult{}, ErrBookingFailed
	}
	log.WithField("booking_id", b.ID).Info("checkout completed")

	s.publish(ctx, bookingEvent(queue.EventBookingCreated, b, now))
	if p.Status == model.PaymentCompleted {
		s.publish(ctx, paymentEvent(queue.EventPaymentCompleted, b, p, now))
	}
	return CheckoutResult{Booking: b, Payment: p, RedirectURL: res.RedirectURL}, nil
}

func chargeError(log *logrus.Logger, err error, studentID uint64) error {
	var ve *gateway.ValidationError
	switch {
	case errors.As(err, &ve):
		return validationError(err)
	case errors.Is(err, context.DeadlineExceeded):
		log.WithField("student_id", studentID).Warn("payment gateway timed out")
		return newError(http.StatusGatewayTimeout, "Payment timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return newError(http.StatusRequestTimeout, "Payment was cancelled")
	}
	log.WithError(err).WithField("student_id", studentID).Error("payment gateway charge failed")
	return newError(http.StatusBadGateway, "Payment could not be processed")
}

// ListMine returns the student's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, studentID uint64) ([]BookingView, error) {
	bs, err := s.Bookings.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return views(bs, s.now()), nil
}

// Active returns the student's current booking or nil.
func (s *BookingService) Active(ctx context.Context, studentID uint64) (*model.Booking, error) {
	return s.Bookings.CurrentForStudent(ctx, studentID, s.now().UTC())
}

// Get returns one of the student's bookings.
func (s *BookingService) Get(ctx context.Context, studentID, bookingID uint64) (BookingView, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return BookingView{}, mapNotFound(err, "Booking not found")
	}
	if b.StudentID != studentID {
		return BookingView{}, forbidden("Not authorized to view this booking")
	}
	return BookingView{Booking: b, IsActive: b.IsActive(s.now())}, nil
}

// Cancel cancels the student's booking and releases its bed.  The linked
// payment is left as it is.
func (s *BookingService) Cancel(ctx context.Context, studentID, bookingID uint64, reason string) (model.Booking, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return model.Booking{}, badRequest("Reason must be at most 500 characters")
	}
	now := s.now().UTC()
	b, err := s.transition(ctx, bookingID, model.BookingCancelled, reason, now, func(b model.Booking) error {
		if b.StudentID != studentID {
			return forbidden("Not authorized to cancel this booking")
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.publish(ctx, bookingEvent(queue.EventBookingCancelled, b, now))
	return b, nil
}

// transition moves a booking through the state machine under a row lock,
// releasing the room when the booking stops holding it.
func (s *BookingService) transition(ctx context.Context, id uint64, to model.BookingStatus, reason string, now time.Time, authorize func(model.Booking) error) (model.Booking, error) {
	var out model.Booking
	err := s.Tx.InTx(ctx, func(tx *sql.Tx) error {
		b, err := s.Bookings.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return mapNotFound(err, "Booking not found")
		}
		if err := authorize(b); err != nil {
			return err
		}
		if !b.Status.CanTransitionTo(to) {
			return conflict(fmt.Sprintf("Booking is %s and cannot become %s", b.Status, to))
		}
		var r *string
		if to == model.BookingCancelled && reason != "" {
			r = &reason
		}
		if err := s.Bookings.UpdateStatusTx(ctx, tx, id, to, r, now); err != nil {
			return err
		}
		if b.Status.HoldsRoom() && !to.HoldsRoom() {
			if err := s.Rooms.DecrementOccupancyTx(ctx, tx, b.RoomID); err != nil {
				return err
			}
		}
		b.Status = to
		b.UpdatedAt = now
		if to == model.BookingCancelled {
			b.CancellationReason = r
			b.CancelledAt = &now
		}
		out = b
		return nil
	})
	return out, err
}

// ListForCustodian returns bookings in the custodian's hostels.
func (s *BookingService) ListForCustodian(ctx context.Context, custodianID uint64, status string) ([]BookingView, error) {
	var st model.BookingStatus
	if strings.TrimSpace(status) != "" {
		parsed, err := model.ParseBookingStatus(status)
		if err != nil {
			return nil, badRequest("Invalid booking status")
		}
		st = parsed
	}
	bs, err := s.Bookings.ListForCustodian(ctx, custodianID, st, 100)
	if err != nil {
		return nil, err
	}
	return views(bs, s.now()), nil
}

// SetStatusByCustodian checks a student in, completes or cancels a booking
// in one of the custodian's hostels.
func (s *BookingService) SetStatusByCustodian(ctx context.Context, custodianID, bookingID uint64, status, reason string) (model.Booking, error) {
	to, err := model.ParseBookingStatus(status)
	if err != nil {
		return model.Booking{}, badRequest("Invalid booking status")
	}
	now := s.now().UTC()
	b, err := s.transition(ctx, bookingID, to, strings.TrimSpace(reason), now, func(b model.Booking) error {
		if b.CustodianID == nil || *b.CustodianID != custodianID {
			return forbidden("Booking is not in one of your hostels")
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	if t, ok := statusEvents[to]; ok {
		s.publish(ctx, bookingEvent(t, b, now))
	}
	return b, nil
}

var statusEvents = map[model.BookingStatus]queue.EventType{
	model.BookingCheckedIn: queue.EventBookingCheckedIn,
	model.BookingCompleted: queue.EventBookingCompleted,
	model.BookingCancelled: queue.EventBookingCancelled,
}

// CompleteExpired marks bookings whose semester has ended as COMPLETED and
// returns how many were completed.
func (s *BookingService) CompleteExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	expired, err := s.Bookings.ListExpired(ctx, now, 200)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, e := range expired {
		b, err := s.transition(ctx, e.ID, model.BookingCompleted, "", now, func(b model.Booking) error {
			if !b.EndDate.After(now) {
				return nil
			}
			return conflict("booking was extended")
		})
		if err != nil {
			if _, ok := AsError(err); ok {
				continue
			}
			return done, err
		}
		done++
		s.publish(ctx, bookingEvent(queue.EventBookingCompleted, b, now))
	}
	return done, nil
}

func (s *BookingService) publish(ctx context.Context, ev queue.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).WithFields(logrus.Fields{"event": ev.Type, "booking_id": ev.BookingID}).
			Warn("booking event not published")
	}
}

func bookingEvent(t queue.EventType, b model.Booking, at time.Time) queue.Event {
	ev := queue.Event{
		Type:       t,
		BookingID:  b.ID,
		StudentID:  b.StudentID,
		HostelID:   b.HostelID,
		HostelName: b.HostelName,
		RoomNumber: b.RoomNumber,
		Amount:     b.TotalAmount,
		OccurredAt: at,
	}
	if b.CustodianID != nil {
		ev.CustodianID = *b.CustodianID
	}
	if b.CancellationReason != nil {
		ev.Reason = *b.CancellationReason
	}
	return ev
}

func paymentEvent(t queue.EventType, b model.Booking, p model.Payment, at time.Time) queue.Event {
	ev := bookingEvent(t, b, at)
	ev.Amount = p.Amount
	ev.TransactionID = p.TransactionID
	ev.Status = string(p.Status)
	ev.BookingStatus = string(b.Status)
	return ev
}

func views(bs []model.Booking, now time.Time) []BookingView {
	out := make([]BookingView, len(bs))
	for i, b := range bs {
		out[i] = BookingView{Booking: b, IsActive: b.IsActive(now)}
	}
	return out
}

func applyProfile(s *model.Student, p ProfileInput) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&s.FullName, p.FullName)
	set(&s.Phone, p.Phone)
	set(&s.Gender, p.Gender)
	set(&s.University, p.University)
	set(&s.Course, p.Course)
	set(&s.StudentNumber, p.StudentNumber)
	set(&s.EmergencyName, p.EmergencyName)
	set(&s.EmergencyPhone, p.EmergencyPhone)
	set(&s.EmergencyRelation, p.EmergencyRelation)
	if p.YearOfStudy > 0 {
		s.YearOfStudy = p.YearOfStudy
	}
}

// mapNotFound turns repository not-found errors into a 404 with msg.
func mapNotFound(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(msg)
	}
	return err
}

func validationError(err error) error {
	var ve *gateway.ValidationError
	if errors.As(err, &ve) {
		e := badRequest(ve.Message)
		e.Details = map[string]string{ve.Field: ve.Message}
		return e
	}
	return badRequest(err.Error())
}
