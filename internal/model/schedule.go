package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduleSlot is a doctor's recurring weekly availability window in a
// specific room. Times are wall-clock "HH:MM" strings; intervals are
// half-open, so a slot ending at 10:00 does not conflict with one
// starting at 10:00.
type ScheduleSlot struct {
	Base
	DoctorID    uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	RoomID      uuid.UUID    `db:"room_id" json:"room_id"`
	Weekday     time.Weekday `db:"weekday" json:"weekday"`
	StartTime   string       `db:"start_time" json:"start_time"`
	EndTime     string       `db:"end_time" json:"end_time"`
	MaxCapacity int          `db:"max_capacity" json:"max_capacity"`
	Room        *Room        `db:"-" json:"room,omitempty"`
	Doctor      *Doctor      `db:"-" json:"doctor,omitempty"`
}

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Interval returns the slot's [start, end) bounds in minutes since midnight.
func (s *ScheduleSlot) Interval() (int, int, error) {
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// IntervalsOverlap tests two half-open intervals. Touching endpoints do
// not overlap.
func IntervalsOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// Overlaps reports whether the slot's interval overlaps [start, end).
func (s *ScheduleSlot) Overlaps(start, end int) bool {
	ss, se, err := s.Interval()
	if err != nil {
		return false
	}
	return IntervalsOverlap(ss, se, start, end)
}

// HasOverlap scans a slot set for any interval overlapping [start, end),
// skipping the slot with the given id. Pass uuid.Nil to exclude nothing.
func HasOverlap(slots []*ScheduleSlot, start, end int, exclude uuid.UUID) bool {
	for _, slot := range slots {
		if slot.ID == exclude {
			continue
		}
		if slot.Overlaps(start, end) {
			return true
		}
	}
	return false
}

type CreateScheduleSlotRequest struct {
	DoctorID    uuid.UUID `json:"doctor_id" binding:"required"`
	RoomID      uuid.UUID `json:"room_id" binding:"required"`
	Weekday     int       `json:"weekday" binding:"min=0,max=6"`
	StartTime   string    `json:"start_time" binding:"required"`
	EndTime     string    `json:"end_time" binding:"required"`
	MaxCapacity int       `json:"max_capacity" binding:"required,min=1"`
}

// ScheduleSlotPatch carries a partial update: nil means leave unchanged.
type ScheduleSlotPatch struct {
	RoomID      *uuid.UUID `json:"room_id"`
	Weekday     *int       `json:"weekday"`
	StartTime   *string    `json:"start_time"`
	EndTime     *string    `json:"end_time"`
	MaxCapacity *int       `json:"max_capacity"`
}

// Apply merges the patch into a copy of the slot.
func (p *ScheduleSlotPatch) Apply(slot *ScheduleSlot) *ScheduleSlot {
	merged := *slot
	if p.RoomID != nil {
		merged.RoomID = *p.RoomID
	}
	if p.Weekday != nil {
		merged.Weekday = time.Weekday(*p.Weekday)
	}
	if p.StartTime != nil {
		merged.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		merged.EndTime = *p.EndTime
	}
	if p.MaxCapacity != nil {
		merged.MaxCapacity = *p.MaxCapacity
	}
	return &merged
}
