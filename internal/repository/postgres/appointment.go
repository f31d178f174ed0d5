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

const appointmentColumns = `
	id, patient_id, doctor_id, schedule_id, appointment_date, status,
	appointment_type, fee_paid, cancel_reason, created_at, updated_at`

// Create books an appointment under a row lock on its schedule slot: the
// occupancy count and the insert happen in one transaction, so two
// concurrent bookings cannot both pass the capacity check.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var maxCapacity int
		err := tx.GetContext(ctx, &maxCapacity,
			`SELECT max_capacity FROM schedule_slots WHERE id = $1 FOR UPDATE`,
			appointment.ScheduleID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("schedule slot")
		}
		if err != nil {
			return fmt.Errorf("failed to lock schedule slot: %w", err)
		}

		var occupancy int
		query := `
			SELECT COUNT(*) FROM appointments
			WHERE schedule_id = $1
			AND appointment_date = $2
			AND status != 'canceled'
		`
		if err := tx.GetContext(ctx, &occupancy, query, appointment.ScheduleID, appointment.AppointmentDate); err != nil {
			return fmt.Errorf("failed to count occupancy: %w", err)
		}
		if occupancy >= maxCapacity {
			return apperrors.Conflict("schedule slot is fully booked for this date")
		}

		insert := `
			INSERT INTO appointments (
				id, patient_id, doctor_id, schedule_id, appointment_date,
				status, appointment_type, fee_paid, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		_, err = tx.ExecContext(ctx, insert,
			appointment.ID,
			appointment.PatientID,
			appointment.DoctorID,
			appointment.ScheduleID,
			appointment.AppointmentDate,
			appointment.Status,
			appointment.AppointmentType,
			appointment.FeePaid,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return nil
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) error {
	query := `
		UPDATE appointments
		SET status = $1, cancel_reason = COALESCE($2, cancel_reason), updated_at = $3
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, to, cancelReason, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the appointment vanished or its status moved under us.
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("failed to check appointment: %w", err)
		}
		if !exists {
			return apperrors.NotFound("appointment")
		}
		return apperrors.Conflict("appointment status changed concurrently")
	}
	return nil
}

func (r *appointmentRepository) CountActiveForSlotDate(ctx context.Context, scheduleID uuid.UUID, date time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE schedule_id = $1
		AND appointment_date = $2
		AND status != 'canceled'
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scheduleID, date); err != nil {
		return 0, fmt.Errorf("failed to count occupancy: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, filters.DoctorID)
		argCount++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.ScheduleID != uuid.Nil {
		query += fmt.Sprintf(" AND schedule_id = $%d", argCount)
		args = append(args, filters.ScheduleID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if !filters.DateFrom.IsZero() {
		query += fmt.Sprintf(" AND appointment_date >= $%d", argCount)
		args = append(args, filters.DateFrom)
		argCount++
	}
	if !filters.DateTo.IsZero() {
		query += fmt.Sprintf(" AND appointment_date <= $%d", argCount)
		args = append(args, filters.DateTo)
		argCount++
	}

	query += " ORDER BY appointment_date ASC, created_at ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
