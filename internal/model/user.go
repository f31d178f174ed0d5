package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleReceptionist, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on appointments it does not own.
func (r Role) IsStaff() bool {
	return r == RoleReceptionist || r == RoleAdmin
}

type User struct {
	Base
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Role          Role       `db:"role" json:"role"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	DoctorID      *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
}

// Person is the role-tagged view of an authenticated user. Only the
// variant matching Role is populated.
type Person struct {
	Role    Role     `json:"role"`
	User    *User    `json:"user"`
	Doctor  *Doctor  `json:"doctor,omitempty"`
	Patient *Patient `json:"patient,omitempty"`
}

// Actor is the identity claim the handler layer hands to core operations.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

// OTPToken is a pending email-verification code.
type OTPToken struct {
	UserID    uuid.UUID `db:"user_id"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type RegisterRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Phone       string `json:"phone" binding:"max=32"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender" binding:"omitempty,oneof=male female other"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
	User        *User  `json:"user"`
}
