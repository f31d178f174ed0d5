package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/email"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/pkg/auth"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/logger"
	"github.com/clinicore/clinic-api/pkg/security"
)

const otpTTL = 15 * time.Minute

type Service struct {
	users    repository.UserRepository
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	hasher   security.PasswordHasher
	jwtSvc   auth.JWTService
	emailSvc email.Service
	logger   *logger.Logger
}

func NewService(
	users repository.UserRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	hasher security.PasswordHasher,
	jwtSvc auth.JWTService,
	emailSvc email.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		users:    users,
		doctors:  doctors,
		patients: patients,
		hasher:   hasher,
		jwtSvc:   jwtSvc,
		emailSvc: emailSvc,
		logger:   log.WithComponent("auth"),
	}
}

// Register creates an unverified patient account and emails a one-time
// verification code. The user and patient rows are written atomically.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooWeak) {
			return nil, apperrors.Validation(err.Error())
		}
		return nil, apperrors.Internal(err)
	}

	patient := &model.Patient{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Gender: req.Gender,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(model.DateLayout, req.DateOfBirth)
		if err != nil {
			return nil, apperrors.Validation("invalid date of birth: want YYYY-MM-DD")
		}
		patient.DateOfBirth = &dob
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RolePatient,
	}
	if err := s.users.CreateWithPatient(ctx, user, patient); err != nil {
		return nil, err
	}

	if err := s.issueOTP(ctx, user); err != nil {
		// The account exists; the code can be re-requested.
		s.logger.Error(err, "failed to issue verification code", "user_id", user.ID.String())
	}
	return user, nil
}

// VerifyOTP marks the account verified when the submitted code matches
// and has not expired.
func (s *Service) VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) error {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return apperrors.Conflict("email is already verified")
	}

	token, err := s.users.GetOTP(ctx, user.ID)
	if err != nil {
		return err
	}
	if time.Now().After(token.ExpiresAt) {
		return apperrors.Validation("verification code has expired")
	}
	if token.Code != req.Code {
		return apperrors.Validation("invalid verification code")
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	if err := s.users.DeleteOTP(ctx, user.ID); err != nil {
		s.logger.Error(err, "failed to delete used otp", "user_id", user.ID.String())
	}
	return nil
}

// ResendOTP issues a fresh code for an unverified account.
func (s *Service) ResendOTP(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return apperrors.Conflict("email is already verified")
	}
	return s.issueOTP(ctx, user)
}

// Login checks credentials and returns a signed access token carrying
// the account's role claim.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if !user.EmailVerified {
		return nil, apperrors.Forbidden("email is not verified")
	}

	token, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.LoginResponse{
		AccessToken: token,
		Role:        user.Role,
		User:        user,
	}, nil
}

// Profile returns the role-tagged person view; only the variant matching
// the account's role is populated.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*model.Person, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	person := &model.Person{
		Role: user.Role,
		User: user,
	}
	switch user.Role {
	case model.RoleDoctor:
		if user.DoctorID != nil {
			if doctor, err := s.doctors.Get(ctx, *user.DoctorID); err == nil {
				person.Doctor = doctor
			}
		}
	case model.RolePatient:
		if user.PatientID != nil {
			if patient, err := s.patients.Get(ctx, *user.PatientID); err == nil {
				person.Patient = patient
			}
		}
	}
	return person, nil
}

func (s *Service) issueOTP(ctx context.Context, user *model.User) error {
	code, err := security.GenerateOTP()
	if err != nil {
		return err
	}

	token := &model.OTPToken{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
		CreatedAt: time.Now(),
	}
	if err := s.users.StoreOTP(ctx, token); err != nil {
		return err
	}

	// Delivery is fire-and-forget; a lost email is resolved by resend.
	go func(addr, code string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.emailSvc.SendVerificationCode(ctx, addr, code); err != nil {
			s.logger.Error(err, "failed to send verification code", "email", addr)
		}
	}(user.Email, code)
	return nil
}
