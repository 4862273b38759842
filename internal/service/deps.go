package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/queue"
	"github.com/bookmyhostel/hostel-api/internal/repository"
)

// Transactor runs fn inside one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// EventPublisher sends booking lifecycle events.  Publishing is best
// effort: errors are logged by the caller and never fail a request.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type StudentStore interface {
	GetByUserID(ctx context.Context, userID uint64) (model.Student, error)
	Update(ctx context.Context, s *model.Student) error
	UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Student) error
	LockTx(ctx context.Context, tx *sql.Tx, userID uint64) error
}

type HostelReader interface {
	GetByID(ctx context.Context, id uint64) (model.Hostel, error)
	GetByName(ctx context.Context, name string) (model.Hostel, error)
	ListByCustodian(ctx context.Context, custodianID uint64) ([]model.Hostel, error)
}

type RoomStore interface {
	GetByID(ctx context.Context, id uint64) (model.Room, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Room, error)
	GetByHostelAndNumber(ctx context.Context, hostelID uint64, number string) (model.Room, error)
	ListByHostel(ctx context.Context, hostelID uint64, availableOnly bool) ([]model.Room, error)
	Create(ctx context.Context, rm *model.Room) error
	Update(ctx context.Context, rm *model.Room) error
	IncrementOccupancyTx(ctx context.Context, tx *sql.Tx, id uint64) error
	DecrementOccupancyTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

type BookingStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error)
	ListByStudent(ctx context.Context, studentID uint64) ([]model.Booking, error)
	CurrentForStudent(ctx context.Context, studentID uint64, now time.Time) (*model.Booking, error)
	HasActive(ctx context.Context, studentID uint64, now time.Time) (bool, error)
	HasActiveTx(ctx context.Context, tx *sql.Tx, studentID uint64, now time.Time) (bool, error)
	SetPaymentTx(ctx context.Context, tx *sql.Tx, bookingID, paymentID uint64) error
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus, reason *string, at time.Time) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)
	ListForCustodian(ctx context.Context, custodianID uint64, status model.BookingStatus, limit int) ([]model.Booking, error)
}

type PaymentStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error
	GetByTransactionID(ctx context.Context, txID string) (model.Payment, error)
	GetByTransactionIDForUpdateTx(ctx context.Context, tx *sql.Tx, txID string) (model.Payment, error)
	ListByStudent(ctx context.Context, studentID uint64, limit int) ([]model.Payment, error)
	ListForCustodian(ctx context.Context, custodianID uint64, limit int) ([]model.Payment, error)
	TotalsForCustodian(ctx context.Context, custodianID uint64) (repository.PaymentTotals, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PaymentStatus) error
}

type MaintenanceStore interface {
	Create(ctx context.Context, m *model.MaintenanceRequest) error
	GetByID(ctx context.Context, id uint64) (model.MaintenanceRequest, error)
	ListByStudent(ctx context.Context, studentID uint64) ([]model.MaintenanceRequest, error)
	ListForCustodian(ctx context.Context, custodianID uint64, status model.MaintenanceStatus) ([]model.MaintenanceRequest, error)
	CountOpenForCustodian(ctx context.Context, custodianID uint64) (int, error)
	UpdateStatus(ctx context.Context, id uint64, status model.MaintenanceStatus) error
}

type NotificationStore interface {
	InsertMany(ctx context.Context, ns []model.Notification) error
	ListByUser(ctx context.Context, userID uint64, limit int64) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID uint64, id string) error
}

type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	ListConversation(ctx context.Context, a, b uint64, limit int64) ([]model.Message, error)
	Conversations(ctx context.Context, userID uint64) ([]model.Conversation, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}
