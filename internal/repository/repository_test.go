package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
		db.Close()
	})
	return db, mock
}

func dupErr(key string) error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'payments." + key + "'"}
}

func TestDuplicateKey(t *testing.T) {
	key, ok := duplicateKey(dupErr("uq_payments_txn"))
	if !ok || key != "uq_payments_txn" {
		t.Fatalf("got %q %v", key, ok)
	}
	if _, ok := duplicateKey(errors.New("other")); ok {
		t.Fatal("plain error is not a duplicate")
	}
	if !errors.Is(ErrBookingNotFound, ErrNotFound) {
		t.Fatal("entity not-found errors must wrap ErrNotFound")
	}
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("jane@uni.ac.ug", sqlmock.AnyArg(), model.RoleStudent).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'users.uq_users_email'"})

	_, err := NewUserRepo(db).Create(context.Background(), " Jane@Uni.ac.ug ", "secret123", model.RoleStudent, 4)
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
}

func TestUserRepoGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM users WHERE email=").WithArgs("nobody@x.test").
		WillReturnError(sql.ErrNoRows)

	if _, err := NewUserRepo(db).GetByEmail(context.Background(), "nobody@x.test"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPaymentRepoCreateTxMapsUniqueKeys(t *testing.T) {
	tests := []struct {
		key  string
		want error
	}{
		{"uq_payments_booking", ErrPaymentExists},
		{"uq_payments_txn", ErrDuplicateTransaction},
		{"something_else", ErrConflict},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO payments").WillReturnError(dupErr(tc.key))
			mock.ExpectRollback()

			tx, err := db.Begin()
			if err != nil {
				t.Fatal(err)
			}
			p := &model.Payment{BookingID: 1, StudentID: 2, Amount: 800000,
				PaymentMethod: model.MethodMobileMoney, TransactionID: "MM_1", Status: model.PaymentCompleted}
			if err := NewPaymentRepo(db).CreateTx(context.Background(), tx, p); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			_ = tx.Rollback()
		})
	}
}

var bookingCols = []string{"id", "student_id", "hostel_id", "room_id", "status", "total_amount",
	"start_date", "end_date", "payment_id", "cancellation_reason", "cancelled_at",
	"created_at", "updated_at", "name", "room_number", "custodian_id"}

func TestBookingRepoGetByIDNormalizesStatus(t *testing.T) {
	db, mock := newMock(t)
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT b.id").WithArgs(uint64(9)).WillReturnRows(
		sqlmock.NewRows(bookingCols).AddRow(9, 3, 1, 2, "active", 800000,
			start, start.AddDate(0, 4, 0), 15, nil, nil, start, start, "Sunshine Hostel", "A-104", 7))

	b, err := NewBookingRepo(db).GetByID(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != model.BookingBooked {
		t.Fatalf("status = %q", b.Status)
	}
	if b.PaymentID == nil || *b.PaymentID != 15 || b.CustodianID == nil || *b.CustodianID != 7 {
		t.Fatalf("nullable columns not mapped: %+v", b)
	}
	if b.CancellationReason != nil || b.CancelledAt != nil {
		t.Fatal("null cancellation fields should stay nil")
	}
}

func TestBookingRepoCurrentForStudentNone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT b.id").WillReturnRows(sqlmock.NewRows(bookingCols))

	b, err := NewBookingRepo(db).CurrentForStudent(context.Background(), 3, time.Now())
	if err != nil || b != nil {
		t.Fatalf("got %v, %v", b, err)
	}
}

func TestRoomRepoIncrementOccupancyFull(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE rooms SET occupancy = occupancy \\+ 1").WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, _ := db.Begin()
	if err := NewRoomRepo(db).IncrementOccupancyTx(context.Background(), tx, 4); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("err = %v", err)
	}
	_ = tx.Rollback()
}

func TestHostelRepoListDecodesAmenities(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("SELECT COUNT").WithArgs("%kampala%", "%kampala%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT h.id").WithArgs("%kampala%", "%kampala%", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "description", "amenities",
			"custodian_id", "created_at", "updated_at", "min_price"}).
			AddRow(1, "Sunshine Hostel", "Kampala", "", `["WiFi","Water"]`, nil, now, now, 650000))

	hs, total, err := NewHostelRepo(db).List(context.Background(), HostelFilter{Query: "kampala"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(hs) != 1 {
		t.Fatalf("total=%d len=%d", total, len(hs))
	}
	if len(hs[0].Amenities) != 2 || hs[0].CustodianID != nil || hs[0].MinPrice != 650000 {
		t.Fatalf("hostel = %+v", hs[0])
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}

func TestConversationKeyIsSymmetric(t *testing.T) {
	if ConversationKey(9, 2) != ConversationKey(2, 9) || ConversationKey(2, 9) != "2:9" {
		t.Fatal("conversation key must not depend on direction")
	}
}

func TestTokenRepoRotate(t *testing.T) {
	db, mock := newMock(t)
	exp := time.Now().UTC().Add(time.Hour)
	cols := []string{"user_id", "expires_at", "revoked_at"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=\\? LIMIT 1 FOR UPDATE").
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, exp, nil))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs(7, "new", exp).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	id, err := NewTokenRepo(db).Rotate(context.Background(), "old", "new", exp)
	if err != nil || id != 7 {
		t.Fatalf("Rotate = %d, %v", id, err)
	}
}

func TestTokenRepoRotateRevoked(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens").WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow(7, now.Add(time.Hour), now))
	mock.ExpectRollback()

	if _, err := NewTokenRepo(db).Rotate(context.Background(), "old", "new", now.Add(time.Hour)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenRepoValidateExpired(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM refresh_tokens").WithArgs("h").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow(7, time.Now().UTC().Add(-time.Minute), nil))
	if _, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}
