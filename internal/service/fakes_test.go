package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/queue"
	"github.com/bookmyhostel/hostel-api/internal/repository"
)

// memDB is an in-memory stand-in for MySQL and MongoDB.  Transactions are
// serialized by txMu, which plays the role of the student row lock.
type memDB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users         map[uint64]model.User
	students      map[uint64]model.Student
	hostels       map[uint64]model.Hostel
	rooms         map[uint64]model.Room
	bookings      map[uint64]model.Booking
	payments      map[uint64]model.Payment
	maintenance   map[uint64]model.MaintenanceRequest
	notifications []model.Notification
	messages      []model.Message
	seq           uint64
}

func newMemDB() *memDB {
	return &memDB{
		users:       map[uint64]model.User{},
		students:    map[uint64]model.Student{},
		hostels:     map[uint64]model.Hostel{},
		rooms:       map[uint64]model.Room{},
		bookings:    map[uint64]model.Booking{},
		payments:    map[uint64]model.Payment{},
		maintenance: map[uint64]model.MaintenanceRequest{},
		seq:         100,
	}
}

func (db *memDB) next() uint64 { db.seq++; return db.seq }

func (db *memDB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()
	return fn(nil)
}

func (db *memDB) addStudent(id uint64, name string) {
	db.users[id] = model.User{ID: id, Email: name + "@example.com", Role: model.RoleStudent, IsActive: true}
	db.students[id] = model.Student{UserID: id, Email: name + "@example.com", FullName: name, Phone: "0771234567"}
}

func (db *memDB) addCustodian(id uint64) {
	db.users[id] = model.User{ID: id, Email: "custodian@example.com", Role: model.RoleCustodian, IsActive: true}
}

func (db *memDB) addHostel(id uint64, name string, custodian *uint64) {
	db.hostels[id] = model.Hostel{ID: id, Name: name, Location: "Kampala", CustodianID: custodian, Amenities: []string{}}
}

func (db *memDB) addRoom(id, hostelID uint64, number string, price int64, capacity int) {
	db.rooms[id] = model.Room{ID: id, HostelID: hostelID, RoomNumber: number, RoomType: "Single", Price: price, Capacity: capacity, IsActive: true}
}

// decorate fills the joined columns the SQL queries would load.
func (db *memDB) decorate(b model.Booking) model.Booking {
	h := db.hostels[b.HostelID]
	b.HostelName = h.Name
	b.CustodianID = h.CustodianID
	b.RoomNumber = db.rooms[b.RoomID].RoomNumber
	return b
}

type fakeStudents struct{ *memDB }

func (f fakeStudents) GetByUserID(_ context.Context, id uint64) (model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return s, repository.ErrStudentNotFound
	}
	return s, nil
}

func (f fakeStudents) Update(_ context.Context, s *model.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[s.UserID]; !ok {
		return repository.ErrStudentNotFound
	}
	f.students[s.UserID] = *s
	return nil
}

func (f fakeStudents) UpdateTx(ctx context.Context, _ *sql.Tx, s *model.Student) error {
	return f.Update(ctx, s)
}

func (f fakeStudents) LockTx(_ context.Context, _ *sql.Tx, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[id]; !ok {
		return repository.ErrStudentNotFound
	}
	return nil
}

type fakeHostels struct{ *memDB }

func (f fakeHostels) GetByID(_ context.Context, id uint64) (model.Hostel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hostels[id]
	if !ok {
		return h, repository.ErrHostelNotFound
	}
	return h, nil
}

func (f fakeHostels) GetByName(_ context.Context, name string) (model.Hostel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.hostels {
		if h.Name == name {
			return h, nil
		}
	}
	return model.Hostel{}, repository.ErrHostelNotFound
}

func (f fakeHostels) ListByCustodian(_ context.Context, custodianID uint64) ([]model.Hostel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Hostel{}
	for _, h := range f.hostels {
		if h.CustodianID != nil && *h.CustodianID == custodianID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRooms struct{ *memDB }

func (f fakeRooms) GetByID(_ context.Context, id uint64) (model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[id]
	if !ok {
		return r, repository.ErrRoomNotFound
	}
	return r, nil
}

func (f fakeRooms) GetForUpdateTx(ctx context.Context, _ *sql.Tx, id uint64) (model.Room, error) {
	return f.GetByID(ctx, id)
}

func (f fakeRooms) GetByHostelAndNumber(_ context.Context, hostelID uint64, number string) (model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.HostelID == hostelID && r.RoomNumber == number {
			return r, nil
		}
	}
	return model.Room{}, repository.ErrRoomNotFound
}

func (f fakeRooms) ListByHostel(_ context.Context, hostelID uint64, availableOnly bool) ([]model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Room{}
	for _, r := range f.rooms {
		if r.HostelID == hostelID && (!availableOnly || r.HasVacancy()) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out, nil
}

func (f fakeRooms) Create(_ context.Context, rm *model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.HostelID == rm.HostelID && r.RoomNumber == rm.RoomNumber {
			return repository.ErrConflict
		}
	}
	rm.ID = f.next()
	f.rooms[rm.ID] = *rm
	return nil
}

func (f fakeRooms) Update(_ context.Context, rm *model.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rooms[rm.ID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	if rm.Capacity < cur.Occupancy {
		return repository.ErrConflict
	}
	rm.Occupancy = cur.Occupancy
	f.rooms[rm.ID] = *rm
	return nil
}

func (f fakeRooms) IncrementOccupancyTx(_ context.Context, _ *sql.Tx, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rooms[id]
	if !r.HasVacancy() {
		return repository.ErrRoomFull
	}
	r.Occupancy++
	f.rooms[id] = r
	return nil
}

func (f fakeRooms) DecrementOccupancyTx(_ context.Context, _ *sql.Tx, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rooms[id]
	if r.Occupancy > 0 {
		r.Occupancy--
	}
	f.rooms[id] = r
	return nil
}

type fakeBookings struct{ *memDB }

func (f fakeBookings) CreateTx(_ context.Context, _ *sql.Tx, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.next()
	f.bookings[b.ID] = *b
	return nil
}

func (f fakeBookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return b, repository.ErrBookingNotFound
	}
	return f.decorate(b), nil
}

func (f fakeBookings) GetForUpdateTx(ctx context.Context, _ *sql.Tx, id uint64) (model.Booking, error) {
	return f.GetByID(ctx, id)
}

// sorted returns the bookings matching keep, newest first.
func (f fakeBookings) sorted(keep func(model.Booking) bool) []model.Booking {
	out := []model.Booking{}
	for _, b := range f.bookings {
		if keep(b) {
			out = append(out, f.decorate(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f fakeBookings) ListByStudent(_ context.Context, studentID uint64) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(b model.Booking) bool { return b.StudentID == studentID }), nil
}

func (f fakeBookings) CurrentForStudent(_ context.Context, studentID uint64, now time.Time) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bs := f.sorted(func(b model.Booking) bool { return b.StudentID == studentID && b.IsActive(now) })
	if len(bs) == 0 {
		return nil, nil
	}
	return &bs[0], nil
}

func (f fakeBookings) HasActive(ctx context.Context, studentID uint64, now time.Time) (bool, error) {
	b, err := f.CurrentForStudent(ctx, studentID, now)
	return b != nil, err
}

func (f fakeBookings) HasActiveTx(ctx context.Context, _ *sql.Tx, studentID uint64, now time.Time) (bool, error) {
	return f.HasActive(ctx, studentID, now)
}

func (f fakeBookings) SetPaymentTx(_ context.Context, _ *sql.Tx, bookingID, paymentID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.PaymentID = &paymentID
	f.bookings[bookingID] = b
	return nil
}

func (f fakeBookings) UpdateStatusTx(_ context.Context, _ *sql.Tx, id uint64, status model.BookingStatus, reason *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = at
	if status == model.BookingCancelled {
		b.CancellationReason = reason
		b.CancelledAt = &at
	}
	f.bookings[id] = b
	return nil
}

func (f fakeBookings) ListExpired(_ context.Context, now time.Time, limit int) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sorted(func(b model.Booking) bool { return b.Status.HoldsRoom() && !b.EndDate.After(now) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeBookings) ListForCustodian(_ context.Context, custodianID uint64, status model.BookingStatus, limit int) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sorted(func(b model.Booking) bool {
		c := f.hostels[b.HostelID].CustodianID
		return c != nil && *c == custodianID && (status == "" || b.Status == status)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePayments struct{ *memDB }

func (f fakePayments) CreateTx(_ context.Context, _ *sql.Tx, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.payments {
		if cur.BookingID == p.BookingID {
			return repository.ErrPaymentExists
		}
		if cur.TransactionID == p.TransactionID {
			return repository.ErrDuplicateTransaction
		}
	}
	p.ID = f.next()
	f.payments[p.ID] = *p
	return nil
}

func (f fakePayments) decoratePayment(p model.Payment) model.Payment {
	p.CustodianID = f.hostels[f.bookings[p.BookingID].HostelID].CustodianID
	return p
}

func (f fakePayments) GetByTransactionID(_ context.Context, txID string) (model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.TransactionID == txID {
			return f.decoratePayment(p), nil
		}
	}
	return model.Payment{}, repository.ErrPaymentNotFound
}

func (f fakePayments) GetByTransactionIDForUpdateTx(ctx context.Context, _ *sql.Tx, txID string) (model.Payment, error) {
	return f.GetByTransactionID(ctx, txID)
}

func (f fakePayments) list(keep func(model.Payment) bool, limit int) []model.Payment {
	out := []model.Payment{}
	for _, p := range f.payments {
		if keep(p) {
			out = append(out, f.decoratePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f fakePayments) ListByStudent(_ context.Context, studentID uint64, limit int) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(p model.Payment) bool { return p.StudentID == studentID }, limit), nil
}

func (f fakePayments) ListForCustodian(_ context.Context, custodianID uint64, limit int) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(p model.Payment) bool {
		c := f.decoratePayment(p).CustodianID
		return c != nil && *c == custodianID
	}, limit), nil
}

func (f fakePayments) TotalsForCustodian(ctx context.Context, custodianID uint64) (repository.PaymentTotals, error) {
	ps, _ := f.ListForCustodian(ctx, custodianID, 0)
	var t repository.PaymentTotals
	for _, p := range ps {
		switch p.Status {
		case model.PaymentCompleted:
			t.Completed += p.Amount
			t.CompletedCount++
		case model.PaymentPending:
			t.Pending += p.Amount
		}
	}
	return t, nil
}

func (f fakePayments) UpdateStatusTx(_ context.Context, _ *sql.Tx, id uint64, status model.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	p.Status = status
	f.payments[id] = p
	return nil
}

type fakeMaintenance struct{ *memDB }

func (f fakeMaintenance) Create(_ context.Context, m *model.MaintenanceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.next()
	m.Status = model.MaintenancePending
	f.maintenance[m.ID] = *m
	return nil
}

func (f fakeMaintenance) GetByID(_ context.Context, id uint64) (model.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.maintenance[id]
	if !ok {
		return m, repository.ErrMaintenanceNotFound
	}
	return m, nil
}

func (f fakeMaintenance) list(keep func(model.MaintenanceRequest) bool) []model.MaintenanceRequest {
	out := []model.MaintenanceRequest{}
	for _, m := range f.maintenance {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f fakeMaintenance) ListByStudent(_ context.Context, studentID uint64) ([]model.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(m model.MaintenanceRequest) bool { return m.StudentID == studentID }), nil
}

func (f fakeMaintenance) inHostelOf(m model.MaintenanceRequest, custodianID uint64) bool {
	if m.HostelID == nil {
		return false
	}
	c := f.hostels[*m.HostelID].CustodianID
	return c != nil && *c == custodianID
}

func (f fakeMaintenance) ListForCustodian(_ context.Context, custodianID uint64, status model.MaintenanceStatus) ([]model.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list(func(m model.MaintenanceRequest) bool {
		return f.inHostelOf(m, custodianID) && (status == "" || m.Status == status)
	}), nil
}

func (f fakeMaintenance) CountOpenForCustodian(_ context.Context, custodianID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.list(func(m model.MaintenanceRequest) bool {
		return f.inHostelOf(m, custodianID) && m.Status != model.MaintenanceResolved
	})), nil
}

func (f fakeMaintenance) UpdateStatus(_ context.Context, id uint64, status model.MaintenanceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.maintenance[id]
	if !ok {
		return repository.ErrMaintenanceNotFound
	}
	m.Status = status
	f.maintenance[id] = m
	return nil
}

type fakeNotifications struct {
	*memDB
	err error
}

func (f fakeNotifications) InsertMany(_ context.Context, ns []model.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, ns...)
	return nil
}

func (f fakeNotifications) ListByUser(_ context.Context, userID uint64, limit int64) ([]model.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Notification{}
	for i := len(f.notifications) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if f.notifications[i].UserID == userID {
			out = append(out, f.notifications[i])
		}
	}
	return out, nil
}

func (f fakeNotifications) MarkRead(_ context.Context, userID uint64, id string) error {
	return repository.ErrNotificationNotFound
}

type fakeMessages struct{ *memDB }

func (f fakeMessages) Insert(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *m)
	return nil
}

func (f fakeMessages) ListConversation(_ context.Context, a, b uint64, limit int64) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := repository.ConversationKey(a, b)
	out := []model.Message{}
	for _, m := range f.messages {
		if m.ConversationKey == key {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f fakeMessages) Conversations(_ context.Context, userID uint64) ([]model.Conversation, error) {
	return []model.Conversation{}, nil
}

type fakeUsers struct{ *memDB }

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return u, repository.ErrUserNotFound
	}
	return u, nil
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// stubGateway approves every charge with a fixed transaction id unless err
// is set.
type stubGateway struct {
	mu    sync.Mutex
	txID  string
	err   error
	calls int
}

func (g *stubGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return gateway.ChargeResult{}, g.err
	}
	id := g.txID
	if id == "" || g.calls > 1 {
		id = req.Reference
	}
	return gateway.ChargeResult{TransactionID: id, Status: model.PaymentCompleted}, nil
}

var errBoom = errors.New("boom")

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var testNow = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type fixture struct {
	db       *memDB
	events   *recorder
	gw       *stubGateway
	bookings *BookingService
	payments *PaymentService
	students *StudentService
}

const (
	studentID   uint64 = 1
	otherID     uint64 = 2
	custodianID uint64 = 50
	hostelID    uint64 = 10
	roomID      uint64 = 20
)

func newFixture() *fixture {
	db := newMemDB()
	db.addStudent(studentID, "amina")
	db.addStudent(otherID, "brian")
	db.addCustodian(custodianID)
	c := custodianID
	db.addHostel(hostelID, "Sunshine Hostel", &c)
	db.addRoom(roomID, hostelID, "A-104", 800000, 2)

	f := &fixture{db: db, events: &recorder{}, gw: &stubGateway{txID: "MM_1700000000000"}}
	log := quietLogger()
	f.bookings = NewBookingService(BookingDeps{
		Tx:       db,
		Students: fakeStudents{db},
		Hostels:  fakeHostels{db},
		Rooms:    fakeRooms{db},
		Bookings: fakeBookings{db},
		Payments: fakePayments{db},
		Gateway:  f.gw,
		Events:   f.events,
		Log:      log,
	}, BookingConfig{SemesterMonths: 4, GatewayTimeout: time.Second})
	f.bookings.now = fixedNow
	f.payments = NewPaymentService(PaymentDeps{
		Tx:       db,
		Bookings: fakeBookings{db},
		Rooms:    fakeRooms{db},
		Payments: fakePayments{db},
		Gateway:  f.gw,
		Events:   f.events,
		Log:      log,
	}, PaymentConfig{MinAmount: 1000, GatewayTimeout: time.Second, MidtransServerKey: "server-key"})
	f.payments.now = fixedNow
	f.students = NewStudentService(fakeStudents{db}, fakeBookings{db}, fakePayments{db},
		fakeMaintenance{db}, fakeNotifications{memDB: db}, log)
	f.students.now = fixedNow
	return f
}

func mobileMoney() CheckoutInput {
	return CheckoutInput{
		Room:          RoomRef{HostelName: "Sunshine Hostel", RoomNumber: "A-104"},
		PaymentMethod: model.MethodMobileMoney,
		Phone:         "0771234567",
	}
}

func statusOf(err error) int {
	if se, ok := AsError(err); ok {
		return se.Status
	}
	return 0
}
