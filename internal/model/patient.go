package model

import (
	"time"
)

type Patient struct {
	Base
	Name        string     `db:"name" json:"name"`
	Email       string     `db:"email" json:"email"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      string     `db:"gender" json:"gender,omitempty"`
	// WalkIn marks a patient record created at the desk without a
	// login-capable account.
	WalkIn bool `db:"walk_in" json:"walk_in"`
}

type CreatePatientRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone" binding:"max=32"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender" binding:"omitempty,oneof=male female other"`
}
