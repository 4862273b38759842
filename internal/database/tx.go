package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxManager runs a function inside a single SQL transaction.  The
// transaction is committed when fn returns nil and rolled back otherwise,
// including when fn panics.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager { return &TxManager{db: db} }

// InTx begins a transaction, hands it to fn and commits on success.
func (m *TxManager) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
