package handler

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/bookmyhostel/hostel-api/internal/config"
	"github.com/bookmyhostel/hostel-api/internal/database"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/repository"
	"github.com/bookmyhostel/hostel-api/internal/utils"
)

var userCols = []string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}

func newAuth(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
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
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: 4}
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db),
		repository.NewStudentRepo(db), database.NewTxManager(db), quiet())
	return h, mock
}

func TestLoginReturnsTokensAndProfile(t *testing.T) {
	h, mock := newAuth(t)
	hash, err := utils.HashPassword("secret123", 4)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .* FROM users WHERE email=").WithArgs("jane@uni.ac.ug").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "jane@uni.ac.ug", hash, model.RoleStudent, true, now, now))
	mock.ExpectQuery("FROM students s JOIN users u").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "email", "full_name", "phone", "gender", "university",
			"course", "year_of_study", "student_number", "emergency_name", "emergency_phone",
			"emergency_relation", "created_at", "updated_at"}).
			AddRow(7, "jane@uni.ac.ug", "Jane Doe", "0772123456", "Female", "Makerere University",
				"Computer Science", 2, "2100712345", "Mary Doe", "0701234567", "Mother", now, now))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs(7, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e := newEcho()
	e.POST("/api/auth/login", h.Login)
	rec := call(e, http.MethodPost, "/api/auth/login", `{"email": " Jane@Uni.ac.ug ", "password": "secret123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	profile, _ := body["profile"].(map[string]any)
	if profile["fullName"] != "Jane Doe" {
		t.Fatalf("profile = %v", body["profile"])
	}
	access := body["access"].(map[string]any)["token"].(string)
	id, role, err := utils.ParseAccessToken("test-secret", access)
	if err != nil || id != 7 || role != model.RoleStudent {
		t.Fatalf("access token: %d %q %v", id, role, err)
	}
	if body["refresh"].(map[string]any)["token"] == "" {
		t.Fatal("missing refresh token")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h, mock := newAuth(t)
	hash, err := utils.HashPassword("secret123", 4)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .* FROM users WHERE email=").WithArgs("jane@uni.ac.ug").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "jane@uni.ac.ug", hash, model.RoleStudent, true, now, now))
	mock.ExpectQuery("SELECT .* FROM users WHERE email=").WithArgs("ghost@uni.ac.ug").
		WillReturnError(sql.ErrNoRows)

	e := newEcho()
	e.POST("/api/auth/login", h.Login)
	if rec := call(e, http.MethodPost, "/api/auth/login", `{"email": "jane@uni.ac.ug", "password": "wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rec.Code)
	}
	if rec := call(e, http.MethodPost, "/api/auth/login", `{"email": "ghost@uni.ac.ug", "password": "x"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", rec.Code)
	}
	if rec := call(e, http.MethodPost, "/api/auth/login", `{"email": ""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: %d", rec.Code)
	}
}

func TestStudentSignupDuplicateEmail(t *testing.T) {
	h, mock := newAuth(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs("jane@uni.ac.ug", sqlmock.AnyArg(), model.RoleStudent).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'users.uq_users_email'"})
	mock.ExpectRollback()

	e := newEcho()
	e.POST("/api/students/signup", h.StudentSignup)
	rec := call(e, http.MethodPost, "/api/students/signup",
		`{"email": "jane@uni.ac.ug", "password": "secret123", "fullName": "Jane Doe", "phone": "0772123456"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStudentSignupCreatesUserAndProfile(t *testing.T) {
	h, mock := newAuth(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO students").
		WithArgs(7, "Jane Doe", "0772123456", "", "", "", 0, "", "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	e := newEcho()
	e.POST("/api/students/signup", h.StudentSignup)
	rec := call(e, http.MethodPost, "/api/students/signup",
		`{"email": "jane@uni.ac.ug", "password": "secret123", "fullName": "Jane Doe", "phone": "0772123456"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if p := decode(t, rec)["profile"].(map[string]any); p["id"] != float64(7) {
		t.Fatalf("profile = %v", p)
	}
}

func TestStudentSignupValidation(t *testing.T) {
	h, _ := newAuth(t)
	e := newEcho()
	e.POST("/api/students/signup", h.StudentSignup)
	rec := call(e, http.MethodPost, "/api/students/signup",
		`{"email": "not-an-email", "password": "123", "fullName": "", "phone": "555"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	details := decode(t, rec)["details"].(map[string]any)
	for _, f := range []string{"email", "password", "fullName", "phone"} {
		if _, ok := details[f]; !ok {
			t.Errorf("no detail for %s: %v", f, details)
		}
	}
}

func TestLogoutNeedsTokenOrBearer(t *testing.T) {
	h, mock := newAuth(t)
	e := newEcho()
	e.POST("/api/auth/logout", h.Logout)

	if rec := call(e, http.MethodPost, "/api/auth/logout", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty logout: %d", rec.Code)
	}

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WillReturnError(sql.ErrNoRows)
	if rec := call(e, http.MethodPost, "/api/auth/logout", `{"refresh_token": "nope"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown refresh token: %d", rec.Code)
	}
}
