package model

import (
	"github.com/google/uuid"
)

type Specialty struct {
	Base
	Name string `db:"name" json:"name"`
}

type Doctor struct {
	Base
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	Phone           string     `db:"phone" json:"phone,omitempty"`
	SpecialtyID     uuid.UUID  `db:"specialty_id" json:"specialty_id"`
	ConsultationFee float64    `db:"consultation_fee" json:"consultation_fee"`
	Specialty       *Specialty `db:"-" json:"specialty,omitempty"`
}

type CreateDoctorRequest struct {
	Name            string    `json:"name" binding:"required,max=120"`
	Email           string    `json:"email" binding:"required,email"`
	Phone           string    `json:"phone" binding:"max=32"`
	SpecialtyID     uuid.UUID `json:"specialty_id" binding:"required"`
	ConsultationFee float64   `json:"consultation_fee" binding:"gte=0"`
}
