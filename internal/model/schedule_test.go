package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9:30am", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.minutes, got, "input %q", tt.input)
	}
}

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 int
		want           bool
	}{
		{"disjoint", 540, 600, 660, 720, false},
		{"touching endpoints do not overlap", 540, 600, 600, 660, false},
		{"partial overlap", 570, 630, 600, 660, true},
		{"contained", 540, 720, 600, 660, true},
		{"identical", 540, 600, 540, 600, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IntervalsOverlap(tt.s1, tt.e1, tt.s2, tt.e2))
			assert.Equal(t, tt.want, IntervalsOverlap(tt.s2, tt.e2, tt.s1, tt.e1), "overlap must be symmetric")
		})
	}
}

func TestHasOverlap(t *testing.T) {
	slotA := &ScheduleSlot{Base: Base{ID: uuid.New()}, StartTime: "09:00", EndTime: "10:00"}
	slotB := &ScheduleSlot{Base: Base{ID: uuid.New()}, StartTime: "11:00", EndTime: "12:00"}
	slots := []*ScheduleSlot{slotA, slotB}

	// 09:30-10:30 clashes with slotA.
	assert.True(t, HasOverlap(slots, 570, 630, uuid.Nil))

	// 10:00-11:00 touches both but overlaps neither.
	assert.False(t, HasOverlap(slots, 600, 660, uuid.Nil))

	// Excluding slotA clears the 09:30-10:30 clash.
	assert.False(t, HasOverlap(slots, 570, 630, slotA.ID))
}

func TestScheduleSlotPatchApply(t *testing.T) {
	original := &ScheduleSlot{
		Base:        Base{ID: uuid.New()},
		DoctorID:    uuid.New(),
		RoomID:      uuid.New(),
		Weekday:     1,
		StartTime:   "09:00",
		EndTime:     "12:00",
		MaxCapacity: 5,
	}

	newStart := "10:00"
	newCap := 8
	patch := &ScheduleSlotPatch{StartTime: &newStart, MaxCapacity: &newCap}

	merged := patch.Apply(original)
	assert.Equal(t, "10:00", merged.StartTime)
	assert.Equal(t, 8, merged.MaxCapacity)
	assert.Equal(t, original.RoomID, merged.RoomID)
	assert.Equal(t, "12:00", merged.EndTime)

	// The original is untouched.
	assert.Equal(t, "09:00", original.StartTime)
	assert.Equal(t, 5, original.MaxCapacity)
}
