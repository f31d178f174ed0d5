package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/clinicore/clinic-api/internal/config"
)

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendVerificationCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code)
	return s.SendCustom(ctx, to, "Verify your email", body)
}

func (s *smtpService) SendBookingConfirmation(ctx context.Context, to, doctorName, date string) error {
	body := fmt.Sprintf("Your appointment with %s on %s has been booked.", doctorName, date)
	return s.SendCustom(ctx, to, "Appointment booked", body)
}

func (s *smtpService) SendCancellation(ctx context.Context, to, doctorName, date string) error {
	body := fmt.Sprintf("Your appointment with %s on %s has been canceled.", doctorName, date)
	return s.SendCustom(ctx, to, "Appointment canceled", body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
