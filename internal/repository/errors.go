// Package repository holds the MySQL and MongoDB data access layer.  The
// sentinel errors below let services tell failure scenarios apart without
// inspecting driver errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is wrapped by every "no such row" error, so callers can test
// errors.Is(err, ErrNotFound) regardless of the entity.
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrStudentNotFound      = fmt.Errorf("student %w", ErrNotFound)
	ErrHostelNotFound       = fmt.Errorf("hostel %w", ErrNotFound)
	ErrRoomNotFound         = fmt.Errorf("room %w", ErrNotFound)
	ErrBookingNotFound      = fmt.Errorf("booking %w", ErrNotFound)
	ErrPaymentNotFound      = fmt.Errorf("payment %w", ErrNotFound)
	ErrMaintenanceNotFound  = fmt.Errorf("maintenance request %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
)

// ErrConflict is returned when a write cannot proceed because of existing
// state, such as a duplicate room number within a hostel.  Handlers
// translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

var (
	ErrEmailExists          = errors.New("email already exists")
	ErrPaymentExists        = errors.New("payment already exists for booking")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrRoomFull             = errors.New("room is full")
	ErrTokenInvalid         = errors.New("refresh token invalid")
)

const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a unique-key violation and, if so,
// the name of the violated key as reported by MySQL.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return "", false
	}
	// Duplicate entry 'x' for key 'payments.uq_payments_txn'
	msg := me.Message
	if i := strings.LastIndex(msg, "for key '"); i >= 0 {
		k := strings.TrimSuffix(msg[i+len("for key '"):], "'")
		if j := strings.LastIndex(k, "."); j >= 0 {
			k = k[j+1:]
		}
		return k, true
	}
	return "", true
}
