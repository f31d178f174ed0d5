package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/metrics"
)

const (
	availabilityCacheTTL     = 2 * time.Minute
	availabilityCacheCleanup = 10 * time.Minute
)

type Service struct {
	repo       repository.ScheduleRepository
	doctorRepo repository.DoctorRepository
	roomRepo   repository.RoomRepository
	cache      *gocache.Cache
	metrics    *metrics.Metrics
}

func NewService(repo repository.ScheduleRepository, doctorRepo repository.DoctorRepository, roomRepo repository.RoomRepository, m *metrics.Metrics) *Service {
	return &Service{
		repo:       repo,
		doctorRepo: doctorRepo,
		roomRepo:   roomRepo,
		cache:      gocache.New(availabilityCacheTTL, availabilityCacheCleanup),
		metrics:    m,
	}
}

// CreateSlot validates a new weekly availability window and persists it.
// Both non-overlap invariants (per doctor and per room, half-open
// intervals) are pre-checked here and re-checked by the repository under
// advisory locks before the insert commits.
func (s *Service) CreateSlot(ctx context.Context, actor model.Actor, req *model.CreateScheduleSlotRequest) (*model.ScheduleSlot, error) {
	if err := authorizeDoctor(actor, req.DoctorID); err != nil {
		return nil, err
	}

	start, end, err := validateInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if req.MaxCapacity < 1 {
		return nil, apperrors.Validation("max capacity must be at least 1")
	}

	if _, err := s.doctorRepo.Get(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	room, err := s.roomRepo.Get(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	weekday := time.Weekday(req.Weekday)
	if err := s.checkOverlaps(ctx, req.DoctorID, req.RoomID, weekday, start, end, uuid.Nil); err != nil {
		return nil, err
	}

	slot := &model.ScheduleSlot{
		DoctorID:    req.DoctorID,
		RoomID:      req.RoomID,
		Weekday:     weekday,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxCapacity: req.MaxCapacity,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("failed to create schedule slot: %w", err)
	}

	s.invalidateDay(req.DoctorID, weekday)
	if s.metrics != nil {
		s.metrics.SlotsCreated.Inc()
	}

	slot.Room = room
	return slot, nil
}

// UpdateSlot merges a partial update into the slot and re-validates both
// overlap invariants against all slots except the one being updated.
func (s *Service) UpdateSlot(ctx context.Context, actor model.Actor, id uuid.UUID, patch *model.ScheduleSlotPatch) (*model.ScheduleSlot, error) {
	slot, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeDoctor(actor, slot.DoctorID); err != nil {
		return nil, err
	}

	if patch.Weekday != nil && (*patch.Weekday < 0 || *patch.Weekday > 6) {
		return nil, apperrors.Validation("weekday must be between 0 and 6")
	}

	merged := patch.Apply(slot)
	start, end, err := validateInterval(merged.StartTime, merged.EndTime)
	if err != nil {
		return nil, err
	}
	if merged.MaxCapacity < 1 {
		return nil, apperrors.Validation("max capacity must be at least 1")
	}

	room, err := s.roomRepo.Get(ctx, merged.RoomID)
	if err != nil {
		return nil, err
	}

	if err := s.checkOverlaps(ctx, merged.DoctorID, merged.RoomID, merged.Weekday, start, end, id); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to update schedule slot: %w", err)
	}

	s.invalidateDay(slot.DoctorID, slot.Weekday)
	s.invalidateDay(merged.DoctorID, merged.Weekday)

	merged.Room = room
	return merged, nil
}

// DeleteSlot removes a slot unless active appointments dated today or
// later still reference it.
func (s *Service) DeleteSlot(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	slot, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeDoctor(actor, slot.DoctorID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, today()); err != nil {
		return err
	}

	s.invalidateDay(slot.DoctorID, slot.Weekday)
	return nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*model.ScheduleSlot, error) {
	slot, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if room, err := s.roomRepo.Get(ctx, slot.RoomID); err == nil {
		slot.Room = room
	}
	return slot, nil
}

func (s *Service) ListDoctorSlots(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleSlot, error) {
	slots, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor slots: %w", err)
	}
	return slots, nil
}

// DoctorDaySlots returns a doctor's windows for one weekday, serving
// repeat availability lookups from a short-lived cache.
func (s *Service) DoctorDaySlots(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*model.ScheduleSlot, error) {
	key := dayKey(doctorID, weekday)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*model.ScheduleSlot), nil
	}

	slots, err := s.repo.ListByDoctorWeekday(ctx, doctorID, weekday)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor day slots: %w", err)
	}
	s.cache.Set(key, slots, gocache.DefaultExpiration)
	return slots, nil
}

// checkOverlaps runs the shared half-open overlap test over both scopes.
func (s *Service) checkOverlaps(ctx context.Context, doctorID, roomID uuid.UUID, weekday time.Weekday, start, end int, excludeID uuid.UUID) error {
	doctorSlots, err := s.repo.ListByDoctorWeekday(ctx, doctorID, weekday)
	if err != nil {
		return fmt.Errorf("failed to load doctor schedule: %w", err)
	}
	if model.HasOverlap(doctorSlots, start, end, excludeID) {
		s.countConflict("doctor")
		return apperrors.Conflict("doctor already has a schedule in this time range")
	}

	roomSlots, err := s.repo.ListByRoomWeekday(ctx, roomID, weekday)
	if err != nil {
		return fmt.Errorf("failed to load room schedule: %w", err)
	}
	if model.HasOverlap(roomSlots, start, end, excludeID) {
		s.countConflict("room")
		return apperrors.Conflict("room is already scheduled in this time range")
	}
	return nil
}

func (s *Service) countConflict(scope string) {
	if s.metrics != nil {
		s.metrics.ScheduleConflictsTotal.WithLabelValues(scope).Inc()
	}
}

func (s *Service) invalidateDay(doctorID uuid.UUID, weekday time.Weekday) {
	s.cache.Delete(dayKey(doctorID, weekday))
}

func dayKey(doctorID uuid.UUID, weekday time.Weekday) string {
	return fmt.Sprintf("doctor:%s:day:%d", doctorID, weekday)
}

func validateInterval(startTime, endTime string) (int, int, error) {
	start, err := model.ParseClock(startTime)
	if err != nil {
		return 0, 0, apperrors.Validation(err.Error())
	}
	end, err := model.ParseClock(endTime)
	if err != nil {
		return 0, 0, apperrors.Validation(err.Error())
	}
	if start >= end {
		return 0, 0, apperrors.Validation("start time must be before end time")
	}
	return start, end, nil
}

func authorizeDoctor(actor model.Actor, doctorID uuid.UUID) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	if actor.Role == model.RoleDoctor && actor.DoctorID != nil && *actor.DoctorID == doctorID {
		return nil
	}
	return apperrors.Forbidden("only the owning doctor or an admin may manage this schedule")
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
