package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/model"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

const scheduleColumns = `
	id, doctor_id, room_id, weekday, to_char(start_time, 'HH24:MI') AS start_time,
	to_char(end_time, 'HH24:MI') AS end_time, max_capacity, created_at, updated_at`

func (r *scheduleRepository) Create(ctx context.Context, slot *model.ScheduleSlot) error {
	slot.ID = uuid.New()
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.checkOverlapsLocked(ctx, tx, slot, uuid.Nil); err != nil {
			return err
		}

		query := `
			INSERT INTO schedule_slots (
				id, doctor_id, room_id, weekday, start_time, end_time,
				max_capacity, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5::time, $6::time, $7, $8, $9)
		`
		_, err := tx.ExecContext(ctx, query,
			slot.ID,
			slot.DoctorID,
			slot.RoomID,
			slot.Weekday,
			slot.StartTime,
			slot.EndTime,
			slot.MaxCapacity,
			slot.CreatedAt,
			slot.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create schedule slot: %w", err)
		}
		return nil
	})
}

func (r *scheduleRepository) Update(ctx context.Context, slot *model.ScheduleSlot) error {
	slot.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.checkOverlapsLocked(ctx, tx, slot, slot.ID); err != nil {
			return err
		}

		query := `
			UPDATE schedule_slots
			SET room_id = $1, weekday = $2, start_time = $3::time,
				end_time = $4::time, max_capacity = $5, updated_at = $6
			WHERE id = $7
		`
		result, err := tx.ExecContext(ctx, query,
			slot.RoomID,
			slot.Weekday,
			slot.StartTime,
			slot.EndTime,
			slot.MaxCapacity,
			slot.UpdatedAt,
			slot.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update schedule slot: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.NotFound("schedule slot")
		}
		return nil
	})
}

// checkOverlapsLocked serializes on the doctor and room scopes, then
// re-runs both half-open overlap checks inside the transaction. This is
// the authoritative check; the service layer's pre-check only exists for
// early, lock-free rejection.
func (r *scheduleRepository) checkOverlapsLocked(ctx context.Context, tx *sqlx.Tx, slot *model.ScheduleSlot, excludeID uuid.UUID) error {
	if err := lockScheduleScope(ctx, tx, "doctor", slot.DoctorID, slot.Weekday); err != nil {
		return err
	}
	if err := lockScheduleScope(ctx, tx, "room", slot.RoomID, slot.Weekday); err != nil {
		return err
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM schedule_slots
			WHERE doctor_id = $1 AND weekday = $2
			AND start_time < $3::time AND end_time > $4::time
			AND id != $5
		)
	`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, slot.DoctorID, slot.Weekday, slot.EndTime, slot.StartTime, excludeID); err != nil {
		return fmt.Errorf("failed to check doctor overlap: %w", err)
	}
	if exists {
		return apperrors.Conflict("doctor already has a schedule in this time range")
	}

	query = `
		SELECT EXISTS (
			SELECT 1 FROM schedule_slots
			WHERE room_id = $1 AND weekday = $2
			AND start_time < $3::time AND end_time > $4::time
			AND id != $5
		)
	`
	if err := tx.GetContext(ctx, &exists, query, slot.RoomID, slot.Weekday, slot.EndTime, slot.StartTime, excludeID); err != nil {
		return fmt.Errorf("failed to check room overlap: %w", err)
	}
	if exists {
		return apperrors.Conflict("room is already scheduled in this time range")
	}
	return nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.ScheduleSlot, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedule_slots WHERE id = $1`

	var slot model.ScheduleSlot
	err := r.db.GetContext(ctx, &slot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("schedule slot")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule slot: %w", err)
	}
	return &slot, nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID, activeFrom time.Time) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Lock the slot row so a concurrent booking cannot slip in
		// between the count and the delete.
		var slotID uuid.UUID
		err := tx.GetContext(ctx, &slotID, `SELECT id FROM schedule_slots WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("schedule slot")
		}
		if err != nil {
			return fmt.Errorf("failed to lock schedule slot: %w", err)
		}

		var active int
		query := `
			SELECT COUNT(*) FROM appointments
			WHERE schedule_id = $1
			AND appointment_date >= $2
			AND status IN ('pending', 'confirmed')
		`
		if err := tx.GetContext(ctx, &active, query, id, activeFrom); err != nil {
			return fmt.Errorf("failed to count upcoming appointments: %w", err)
		}
		if active > 0 {
			return apperrors.Conflict("schedule slot has upcoming appointments")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete schedule slot: %w", err)
		}
		return nil
	})
}

func (r *scheduleRepository) ListByDoctorWeekday(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]*model.ScheduleSlot, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM schedule_slots
		WHERE doctor_id = $1 AND weekday = $2
		ORDER BY start_time ASC`

	var slots []*model.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, doctorID, weekday); err != nil {
		return nil, fmt.Errorf("failed to list doctor schedule: %w", err)
	}
	return slots, nil
}

func (r *scheduleRepository) ListByRoomWeekday(ctx context.Context, roomID uuid.UUID, weekday time.Weekday) ([]*model.ScheduleSlot, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM schedule_slots
		WHERE room_id = $1 AND weekday = $2
		ORDER BY start_time ASC`

	var slots []*model.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, roomID, weekday); err != nil {
		return nil, fmt.Errorf("failed to list room schedule: %w", err)
	}
	return slots, nil
}

func (r *scheduleRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleSlot, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM schedule_slots
		WHERE doctor_id = $1
		ORDER BY weekday ASC, start_time ASC`

	var slots []*model.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor schedule: %w", err)
	}
	return slots, nil
}
