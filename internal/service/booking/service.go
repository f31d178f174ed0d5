package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/notification"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/metrics"
)

// Weekly slots recur without an end date; bookings are accepted up to
// this far ahead.
const MaxAdvanceBooking = 90 * 24 * time.Hour

type Service struct {
	repo         repository.AppointmentRepository
	scheduleRepo repository.ScheduleRepository
	doctorRepo   repository.DoctorRepository
	roomRepo     repository.RoomRepository
	patientRepo  repository.PatientRepository
	notifier     notification.Service
	metrics      *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	scheduleRepo repository.ScheduleRepository,
	doctorRepo repository.DoctorRepository,
	roomRepo repository.RoomRepository,
	patientRepo repository.PatientRepository,
	notifier notification.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:         repo,
		scheduleRepo: scheduleRepo,
		doctorRepo:   doctorRepo,
		roomRepo:     roomRepo,
		patientRepo:  patientRepo,
		notifier:     notifier,
		metrics:      m,
	}
}

// Book creates a pending appointment against a schedule slot. The
// capacity invariant is enforced by the repository under a row lock on
// the slot; this layer validates the request and attaches detail.
func (s *Service) Book(ctx context.Context, actor model.Actor, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if actor.Role == model.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != req.PatientID {
			return nil, apperrors.Forbidden("patients may only book for themselves")
		}
	}

	date, err := time.Parse(model.DateLayout, req.AppointmentDate)
	if err != nil {
		return nil, apperrors.Validation("invalid appointment date: want YYYY-MM-DD")
	}

	slot, err := s.scheduleRepo.Get(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != req.DoctorID {
		return nil, apperrors.Validation("doctor does not own this schedule slot")
	}
	if err := s.validateDate(date, slot.Weekday); err != nil {
		return nil, err
	}

	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ScheduleID:      req.ScheduleID,
		AppointmentDate: date,
		Status:          model.AppointmentStatusPending,
		AppointmentType: req.AppointmentType,
		FeePaid:         req.FeePaid,
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		if apperrors.IsConflict(err) && s.metrics != nil {
			s.metrics.BookingConflictsTotal.WithLabelValues("capacity").Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsTotal.Inc()
	}

	s.attachDetail(ctx, appointment, slot)
	if s.notifier != nil {
		s.notifier.AppointmentBooked(appointment, patient.Email)
	}
	return appointment, nil
}

// CheckIn confirms a pending appointment on arrival.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appointment.Status {
	case model.AppointmentStatusPending:
	case model.AppointmentStatusConfirmed:
		return nil, apperrors.Conflict("appointment is already confirmed")
	case model.AppointmentStatusCanceled:
		return nil, apperrors.Conflict("cannot check in a canceled appointment")
	default:
		return nil, apperrors.Conflict("appointment is already completed")
	}

	if err := s.repo.UpdateStatus(ctx, id, model.AppointmentStatusPending, model.AppointmentStatusConfirmed, nil); err != nil {
		return nil, err
	}
	appointment.Status = model.AppointmentStatusConfirmed

	if s.metrics != nil {
		s.metrics.CheckInsTotal.Inc()
	}
	return appointment, nil
}

// Cancel moves an appointment to canceled, freeing its slot capacity for
// the same date. Patients may only cancel their own pending bookings;
// once confirmed, only reception or admin may cancel.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeCancel(actor, appointment); err != nil {
		return nil, err
	}

	var cancelReason *string
	if reason != "" {
		cancelReason = &reason
	}
	if err := s.repo.UpdateStatus(ctx, id, appointment.Status, model.AppointmentStatusCanceled, cancelReason); err != nil {
		return nil, err
	}
	appointment.Status = model.AppointmentStatusCanceled
	appointment.CancelReason = cancelReason

	if s.metrics != nil {
		s.metrics.CancellationsTotal.WithLabelValues(string(actor.Role)).Inc()
	}

	if s.notifier != nil {
		recipient := ""
		if patient, err := s.patientRepo.Get(ctx, appointment.PatientID); err == nil {
			recipient = patient.Email
		}
		s.notifier.AppointmentCanceled(appointment, recipient)
	}
	return appointment, nil
}

func (s *Service) authorizeCancel(actor model.Actor, appointment *model.Appointment) error {
	switch appointment.Status {
	case model.AppointmentStatusCompleted:
		return apperrors.Conflict("cannot cancel a completed appointment")
	case model.AppointmentStatusCanceled:
		return apperrors.Conflict("appointment is already canceled")
	}

	if actor.Role.IsStaff() {
		return nil
	}
	if actor.Role == model.RolePatient {
		if actor.PatientID == nil || *actor.PatientID != appointment.PatientID {
			return apperrors.Forbidden("cannot cancel another patient's appointment")
		}
		if appointment.Status == model.AppointmentStatusConfirmed {
			return apperrors.Forbidden("confirmed appointments can only be canceled by reception")
		}
		return nil
	}
	return apperrors.Forbidden("role may not cancel appointments")
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RolePatient && (actor.PatientID == nil || *actor.PatientID != appointment.PatientID) {
		return nil, apperrors.Forbidden("cannot view another patient's appointment")
	}
	return appointment, nil
}

func (s *Service) List(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	// Patients only ever see their own bookings.
	if actor.Role == model.RolePatient {
		if actor.PatientID == nil {
			return nil, apperrors.Forbidden("no patient record linked to this account")
		}
		filters.PatientID = *actor.PatientID
	}

	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Occupancy reports the number of non-canceled appointments for a slot
// on a date.
func (s *Service) Occupancy(ctx context.Context, scheduleID uuid.UUID, date time.Time) (int, error) {
	return s.repo.CountActiveForSlotDate(ctx, scheduleID, date)
}

func (s *Service) validateDate(date time.Time, weekday time.Weekday) error {
	now := time.Now()
	todayDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(todayDate) {
		return apperrors.Validation("appointment date is in the past")
	}
	if date.After(todayDate.Add(MaxAdvanceBooking)) {
		return apperrors.Validation("appointment date is beyond the booking horizon")
	}
	if date.Weekday() != weekday {
		return apperrors.Validation("appointment date does not fall on the schedule's weekday")
	}
	return nil
}

func (s *Service) attachDetail(ctx context.Context, appointment *model.Appointment, slot *model.ScheduleSlot) {
	if doctor, err := s.doctorRepo.Get(ctx, appointment.DoctorID); err == nil {
		appointment.Doctor = doctor
	}
	if room, err := s.roomRepo.Get(ctx, slot.RoomID); err == nil {
		appointment.Room = room
	}
}
