package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

// Service maintains the doctor and room directories the scheduling core
// references.
type Service struct {
	doctors  repository.DoctorRepository
	rooms    repository.RoomRepository
	patients repository.PatientRepository
}

func NewService(doctors repository.DoctorRepository, rooms repository.RoomRepository, patients repository.PatientRepository) *Service {
	return &Service{
		doctors:  doctors,
		rooms:    rooms,
		patients: patients,
	}
}

func (s *Service) CreateDoctor(ctx context.Context, actor model.Actor, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("only admins may add doctors")
	}

	doctor := &model.Doctor{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		SpecialtyID:     req.SpecialtyID,
		ConsultationFee: req.ConsultationFee,
	}
	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}
	return doctor, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return s.doctors.Get(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) CreateRoom(ctx context.Context, actor model.Actor, req *model.CreateRoomRequest) (*model.Room, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("only admins may add rooms")
	}

	room := &model.Room{
		Name:  req.Name,
		Floor: req.Floor,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	return s.rooms.Get(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// RegisterWalkIn creates a patient record with no login account, for
// desk-side bookings.
func (s *Service) RegisterWalkIn(ctx context.Context, actor model.Actor, req *model.CreatePatientRequest) (*model.Patient, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.Forbidden("only reception or admin may register walk-in patients")
	}

	patient := &model.Patient{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Gender: req.Gender,
		WalkIn: true,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(model.DateLayout, req.DateOfBirth)
		if err != nil {
			return nil, apperrors.Validation("invalid date of birth: want YYYY-MM-DD")
		}
		patient.DateOfBirth = &dob
	}

	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return patient, nil
}
