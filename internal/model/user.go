package model

import "time"

// Role names stored in users.role and in the access token "role" claim.
const (
	RoleStudent   = "STUDENT"
	RoleCustodian = "CUSTODIAN"
)

// User is an account row in the `users` table.  Students additionally
// own a Student profile row; custodians are linked to the hostels they
// manage through hostels.custodian_id.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – STUDENT or CUSTODIAN.
//  IsActive     – whether the account may log in.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Student is the profile attached to a STUDENT user.  The contact,
// academic and emergency blocks mirror the booking form.
type Student struct {
	UserID            uint64    `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"fullName"`
	Phone             string    `json:"phone"`
	Gender            string    `json:"gender,omitempty"`
	University        string    `json:"university,omitempty"`
	Course            string    `json:"course,omitempty"`
	YearOfStudy       int       `json:"yearOfStudy,omitempty"`
	StudentNumber     string    `json:"studentNumber,omitempty"`
	EmergencyName     string    `json:"emergencyContactName,omitempty"`
	EmergencyPhone    string    `json:"emergencyContactPhone,omitempty"`
	EmergencyRelation string    `json:"emergencyContactRelation,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
