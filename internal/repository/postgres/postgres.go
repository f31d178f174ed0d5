package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/repository"
)

type scheduleRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type medicalRecordRepository struct {
	BaseRepository
}

type doctorRepository struct {
	BaseRepository
}

type roomRepository struct {
	BaseRepository
}

type patientRepository struct {
	BaseRepository
}

type userRepository struct {
	BaseRepository
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewMedicalRecordRepository(db *sqlx.DB) repository.MedicalRecordRepository {
	return &medicalRecordRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{NewBaseRepository(db)}
}

func NewRoomRepository(db *sqlx.DB) repository.RoomRepository {
	return &roomRepository{NewBaseRepository(db)}
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}
