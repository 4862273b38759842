package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestInTxCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE rooms").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewTxManager(db).InTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE rooms SET occupancy = occupancy + 1 WHERE id = 1")
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = NewTxManager(db).InTx(context.Background(), func(*sql.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDSN(t *testing.T) {
	o := Options{User: "app", Pass: "p@ss", Host: "db", Port: "3306", Name: "bookmyhostel"}
	dsn := o.DSN()
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if cfg.User != "app" || cfg.Passwd != "p@ss" || cfg.Addr != "db:3306" || cfg.DBName != "bookmyhostel" {
		t.Fatalf("round trip: %+v", cfg)
	}
	if !cfg.ParseTime || !cfg.MultiStatements || cfg.Loc != time.UTC {
		t.Fatalf("flags: parseTime=%v multi=%v loc=%v", cfg.ParseTime, cfg.MultiStatements, cfg.Loc)
	}
}
