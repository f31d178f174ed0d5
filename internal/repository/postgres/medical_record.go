package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clinicore/clinic-api/internal/model"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

const pqUniqueViolation = "23505"

const medicalRecordColumns = `
	id, appointment_id, diagnosis, prescription, notes, created_at, updated_at`

// CreateWithCompletion inserts the record and drives the owning
// appointment's confirmed -> completed transition in one transaction.
// The unique appointment_id constraint keeps records one-per-appointment.
func (r *medicalRecordRepository) CreateWithCompletion(ctx context.Context, record *model.MedicalRecord) error {
	record.ID = uuid.New()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var status model.AppointmentStatus
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM appointments WHERE id = $1 FOR UPDATE`,
			record.AppointmentID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("appointment")
		}
		if err != nil {
			return fmt.Errorf("failed to lock appointment: %w", err)
		}

		switch status {
		case model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted:
		case model.AppointmentStatusPending:
			return apperrors.Conflict("appointment must be checked in before recording a visit")
		default:
			return apperrors.Conflict("cannot record a visit for a canceled appointment")
		}

		insert := `
			INSERT INTO medical_records (
				id, appointment_id, diagnosis, prescription, notes,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err = tx.ExecContext(ctx, insert,
			record.ID,
			record.AppointmentID,
			record.Diagnosis,
			record.Prescription,
			record.Notes,
			record.CreatedAt,
			record.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
				return apperrors.Conflict("medical record already exists for this appointment")
			}
			return fmt.Errorf("failed to create medical record: %w", err)
		}

		if status == model.AppointmentStatusConfirmed {
			update := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`
			if _, err := tx.ExecContext(ctx, update, model.AppointmentStatusCompleted, time.Now(), record.AppointmentID); err != nil {
				return fmt.Errorf("failed to complete appointment: %w", err)
			}
		}
		return nil
	})
}

func (r *medicalRecordRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error) {
	query := `SELECT ` + medicalRecordColumns + ` FROM medical_records WHERE id = $1`

	var record model.MedicalRecord
	err := r.db.GetContext(ctx, &record, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("medical record")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}
	return &record, nil
}

func (r *medicalRecordRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	query := `SELECT ` + medicalRecordColumns + ` FROM medical_records WHERE appointment_id = $1`

	var record model.MedicalRecord
	err := r.db.GetContext(ctx, &record, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("medical record")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}
	return &record, nil
}

func (r *medicalRecordRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	query := `
		SELECT r.id, r.appointment_id, r.diagnosis, r.prescription, r.notes,
			   r.created_at, r.updated_at
		FROM medical_records r
		JOIN appointments a ON a.id = r.appointment_id
		WHERE a.patient_id = $1
		ORDER BY r.created_at DESC
	`
	var records []*model.MedicalRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}
