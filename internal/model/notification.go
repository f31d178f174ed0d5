package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventAppointmentBooked   = "appointment_booked"
	EventAppointmentCanceled = "appointment_canceled"
)

// AppointmentEvent is the payload published to the notification channel
// after a booking or cancellation commits.
type AppointmentEvent struct {
	Type            string    `json:"type"`
	AppointmentID   uuid.UUID `json:"appointment_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	AppointmentDate string    `json:"appointment_date"`
	OccurredAt      time.Time `json:"occurred_at"`
}
