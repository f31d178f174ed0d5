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

const userColumns = `
	id, email, password_hash, role, email_verified, doctor_id, patient_id,
	created_at, updated_at`

// CreateWithPatient writes the login row and the patient subtype row in
// one transaction: registration either fully succeeds or leaves nothing.
func (r *userRepository) CreateWithPatient(ctx context.Context, user *model.User, patient *model.Patient) error {
	now := time.Now()
	patient.ID = uuid.New()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	user.ID = uuid.New()
	user.PatientID = &patient.ID
	user.CreatedAt = now
	user.UpdatedAt = now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		insertPatient := `
			INSERT INTO patients (
				id, name, email, phone, date_of_birth, gender, walk_in,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := tx.ExecContext(ctx, insertPatient,
			patient.ID,
			patient.Name,
			patient.Email,
			patient.Phone,
			patient.DateOfBirth,
			patient.Gender,
			patient.WalkIn,
			patient.CreatedAt,
			patient.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create patient: %w", err)
		}

		insertUser := `
			INSERT INTO users (
				id, email, password_hash, role, email_verified, patient_id,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err = tx.ExecContext(ctx, insertUser,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.Role,
			user.EmailVerified,
			user.PatientID,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
				return apperrors.Conflict("email is already registered")
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user model.User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

func (r *userRepository) StoreOTP(ctx context.Context, token *model.OTPToken) error {
	query := `
		INSERT INTO otp_tokens (user_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET code = $2, expires_at = $3, created_at = $4
	`
	if _, err := r.db.ExecContext(ctx, query, token.UserID, token.Code, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (r *userRepository) GetOTP(ctx context.Context, userID uuid.UUID) (*model.OTPToken, error) {
	query := `SELECT user_id, code, expires_at, created_at FROM otp_tokens WHERE user_id = $1`

	var token model.OTPToken
	err := r.db.GetContext(ctx, &token, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("verification code")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	return &token, nil
}

func (r *userRepository) DeleteOTP(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}
