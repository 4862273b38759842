package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/config"
	"github.com/bookmyhostel/hostel-api/internal/database"
	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/repository"
	"github.com/bookmyhostel/hostel-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	base
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Students *repository.StudentRepo
	Tx       *database.TxManager
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo,
	s *repository.StudentRepo, tx *database.TxManager, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{base: base{Log: log}, Cfg: cfg, Users: u, Tokens: t, Students: s, Tx: tx}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"` // STUDENT | CUSTODIAN
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type signupReq struct {
	Email                    string `json:"email" validate:"required,email"`
	Password                 string `json:"password" validate:"required,min=6,max=72"`
	FullName                 string `json:"fullName" validate:"required,max=120"`
	Phone                    string `json:"phone" validate:"required,ugphone"`
	Gender                   string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	University               string `json:"university" validate:"max=120"`
	Course                   string `json:"course" validate:"max=120"`
	YearOfStudy              int    `json:"yearOfStudy" validate:"gte=0,lte=10"`
	StudentNumber            string `json:"studentNumber" validate:"max=40"`
	EmergencyContactName     string `json:"emergencyContactName" validate:"max=120"`
	EmergencyContactPhone    string `json:"emergencyContactPhone" validate:"ugphone"`
	EmergencyContactRelation string `json:"emergencyContactRelation" validate:"max=60"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	User    userPart       `json:"user"`
	Profile *model.Student `json:"profile"`
	Access  tokenPart      `json:"access"`
	Refresh tokenPart      `json:"refresh"`
}

// sign builds a token pair for u without persisting the refresh token.
func (h *AuthHandler) sign(u userPart) (authResp, utils.RefreshToken, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, utils.RefreshToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, utils.RefreshToken{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, refresh, nil
}

// issue signs a token pair for u and stores the refresh token's hash.
func (h *AuthHandler) issue(ctx context.Context, u userPart) (authResp, error) {
	resp, refresh, err := h.sign(u)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return resp, nil
}

// profileOf returns the student profile, or nil for custodians and for
// students that signed up without one.
func (h *AuthHandler) profileOf(ctx context.Context, u model.User) (*model.Student, error) {
	if u.Role != model.RoleStudent {
		return nil, nil
	}
	p, err := h.Students.GetByUserID(ctx, u.ID)
	if errors.Is(err, repository.ErrStudentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Register creates an account without a student profile and returns tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleCustodian {
		role = model.RoleStudent
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return h.fail(c, err)
	}
	resp, err := h.issue(ctx, userPart{ID: uid, Email: req.Email, Role: role})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// StudentSignup creates the STUDENT user and its profile in one transaction.
func (h *AuthHandler) StudentSignup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st := model.Student{
		Email:             req.Email,
		FullName:          strings.TrimSpace(req.FullName),
		Phone:             strings.TrimSpace(req.Phone),
		Gender:            req.Gender,
		University:        strings.TrimSpace(req.University),
		Course:            strings.TrimSpace(req.Course),
		YearOfStudy:       req.YearOfStudy,
		StudentNumber:     strings.TrimSpace(req.StudentNumber),
		EmergencyName:     strings.TrimSpace(req.EmergencyContactName),
		EmergencyPhone:    strings.TrimSpace(req.EmergencyContactPhone),
		EmergencyRelation: strings.TrimSpace(req.EmergencyContactRelation),
	}
	err := h.Tx.InTx(ctx, func(tx *sql.Tx) error {
		uid, err := h.Users.CreateTx(ctx, tx, req.Email, req.Password, model.RoleStudent, h.Cfg.BcryptCost)
		if err != nil {
			return err
		}
		st.UserID = uid
		return h.Students.CreateTx(ctx, tx, &st)
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return h.fail(c, err)
	}

	resp, err := h.issue(ctx, userPart{ID: st.UserID, Email: req.Email, Role: model.RoleStudent})
	if err != nil {
		return h.fail(c, err)
	}
	now := time.Now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now
	resp.Profile = &st
	return c.JSON(http.StatusCreated, resp)
}

// rehash upgrades a stored hash to the configured cost.  Failure only
// costs a warning; the login itself already succeeded.
func (h *AuthHandler) rehash(ctx context.Context, id uint64, password string) {
	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err == nil {
		err = h.Users.UpdatePasswordHash(ctx, id, hash)
	}
	if err != nil {
		h.logger().WithError(err).WithField("user_id", id).Warn("password rehash failed")
	}
}

// Login verifies credentials and returns a new token pair plus the
// student profile.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return h.fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}
	if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
		h.rehash(ctx, u.ID, req.Password)
	}

	profile, err := h.profileOf(ctx, u)
	if err != nil {
		return h.fail(c, err)
	}
	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return h.fail(c, err)
	}
	resp.Profile = profile
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a live refresh token for a new pair.  The old token
// is revoked in the same transaction that stores the new one.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return h.fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return h.fail(c, err)
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}

	resp, refresh, err := h.sign(userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return h.fail(c, err)
	}
	if _, err := h.Tokens.Rotate(ctx, hash, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		if errors.Is(err, repository.ErrTokenInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body has none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			if errors.Is(err, repository.ErrTokenInvalid) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
			}
			return h.fail(c, err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return h.fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		uid, _, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return unauthorized(c)
		}
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return h.fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return badRequest(c, "provide Authorization header or refresh_token")
}

// Me returns the authenticated account and, for students, the profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return unauthorized(c)
		}
		return h.fail(c, err)
	}
	profile, err := h.profileOf(ctx, u)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		"profile": profile,
	})
}
