package model

import (
	"github.com/google/uuid"
)

// MedicalRecord is owned by its appointment; at most one exists per
// appointment and creating it completes the visit.
type MedicalRecord struct {
	Base
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	Prescription  string    `db:"prescription" json:"prescription"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
}

type CreateMedicalRecordRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
	Diagnosis     string    `json:"diagnosis" binding:"required,max=2000"`
	Prescription  string    `json:"prescription" binding:"max=2000"`
	Notes         string    `json:"notes" binding:"max=4000"`
}
