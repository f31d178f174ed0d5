package medical

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type Service struct {
	repo            repository.MedicalRecordRepository
	appointmentRepo repository.AppointmentRepository
}

func NewService(repo repository.MedicalRecordRepository, appointmentRepo repository.AppointmentRepository) *Service {
	return &Service{
		repo:            repo,
		appointmentRepo: appointmentRepo,
	}
}

// CreateRecord files the visit record for an appointment and completes
// it. At most one record may exist per appointment; a duplicate attempt
// fails and leaves the first record untouched.
func (s *Service) CreateRecord(ctx context.Context, actor model.Actor, req *model.CreateMedicalRecordRequest) (*model.MedicalRecord, error) {
	appointment, err := s.appointmentRepo.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}

	if err := authorizeRecord(actor, appointment); err != nil {
		return nil, err
	}

	switch appointment.Status {
	case model.AppointmentStatusPending:
		return nil, apperrors.Conflict("appointment must be checked in before recording a visit")
	case model.AppointmentStatusCanceled:
		return nil, apperrors.Conflict("cannot record a visit for a canceled appointment")
	}

	record := &model.MedicalRecord{
		AppointmentID: req.AppointmentID,
		Diagnosis:     req.Diagnosis,
		Prescription:  req.Prescription,
		Notes:         req.Notes,
	}
	if err := s.repo.CreateWithCompletion(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) GetByAppointment(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	appointment, err := s.appointmentRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RolePatient && (actor.PatientID == nil || *actor.PatientID != appointment.PatientID) {
		return nil, apperrors.Forbidden("cannot view another patient's record")
	}
	return s.repo.GetByAppointment(ctx, appointmentID)
}

func (s *Service) ListPatientRecords(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	if actor.Role == model.RolePatient && (actor.PatientID == nil || *actor.PatientID != patientID) {
		return nil, apperrors.Forbidden("cannot view another patient's records")
	}

	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

func authorizeRecord(actor model.Actor, appointment *model.Appointment) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	if actor.Role == model.RoleDoctor && actor.DoctorID != nil && *actor.DoctorID == appointment.DoctorID {
		return nil
	}
	return apperrors.Forbidden("only the treating doctor or an admin may file a record")
}
