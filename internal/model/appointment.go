package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
)

// Terminal reports whether no further transition is permitted.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCanceled
}

// CanTransitionTo encodes the appointment state machine:
// pending -> confirmed -> completed, with cancellation allowed from
// pending and confirmed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusCanceled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusCompleted || next == AppointmentStatusCanceled
	}
	return false
}

type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	ScheduleID      uuid.UUID         `db:"schedule_id" json:"schedule_id"`
	AppointmentDate time.Time         `db:"appointment_date" json:"appointment_date"`
	Status          AppointmentStatus `db:"status" json:"status"`
	AppointmentType string            `db:"appointment_type" json:"appointment_type"`
	FeePaid         float64           `db:"fee_paid" json:"fee_paid"`
	CancelReason    *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Doctor          *Doctor           `db:"-" json:"doctor,omitempty"`
	Room            *Room             `db:"-" json:"room,omitempty"`
}

type BookAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID        uuid.UUID `json:"doctor_id" binding:"required"`
	ScheduleID      uuid.UUID `json:"schedule_id" binding:"required"`
	AppointmentDate string    `json:"appointment_date" binding:"required"`
	AppointmentType string    `json:"appointment_type" binding:"required,oneof=regular followup emergency"`
	FeePaid         float64   `json:"fee_paid" binding:"gte=0"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type AppointmentFilters struct {
	DoctorID   uuid.UUID
	PatientID  uuid.UUID
	ScheduleID uuid.UUID
	Status     AppointmentStatus
	DateFrom   time.Time
	DateTo     time.Time
}
