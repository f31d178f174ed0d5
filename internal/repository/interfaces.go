package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// ScheduleRepository persists doctors' weekly availability slots.
	// Create and Update re-run the overlap checks inside a transaction
	// holding advisory locks on the (doctor, weekday) and (room, weekday)
	// scopes, so two concurrent writes for overlapping intervals cannot
	// both commit.
	ScheduleRepository interface {
		Create(ctx context.Context, slot *model.ScheduleSlot) error
		Get(ctx context.Context, id uuid.UUID) (*model.ScheduleSlot, error)
		Update(ctx context.Context, slot *model.ScheduleSlot) error
		// Delete removes the slot unless a pending or confirmed
		// appointment dated activeFrom or later still references it.
		Delete(ctx context.Context, id uuid.UUID, activeFrom time.Time) error
		ListByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*model.ScheduleSlot, error)
		ListByRoomWeekday(ctx context.Context, roomID uuid.UUID, weekday time.Weekday) ([]*model.ScheduleSlot, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleSlot, error)
	}

	// AppointmentRepository persists bookings. Create takes a row lock on
	// the schedule slot, re-counts occupancy for the date and only then
	// inserts, keeping the capacity invariant under concurrent bookings.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// UpdateStatus transitions only when the stored status still
		// equals from; a lost race surfaces as a conflict.
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) error
		CountActiveForSlotDate(ctx context.Context, scheduleID uuid.UUID, date time.Time) (int, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	}

	// MedicalRecordRepository persists visit records. Create inserts the
	// record and completes its confirmed appointment in one transaction.
	MedicalRecordRepository interface {
		CreateWithCompletion(ctx context.Context, record *model.MedicalRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	RoomRepository interface {
		Create(ctx context.Context, room *model.Room) error
		Get(ctx context.Context, id uuid.UUID) (*model.Room, error)
		List(ctx context.Context) ([]*model.Room, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	UserRepository interface {
		// CreateWithPatient writes the login row and its patient subtype
		// row atomically.
		CreateWithPatient(ctx context.Context, user *model.User, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
		StoreOTP(ctx context.Context, token *model.OTPToken) error
		GetOTP(ctx context.Context, userID uuid.UUID) (*model.OTPToken, error)
		DeleteOTP(ctx context.Context, userID uuid.UUID) error
	}
)
