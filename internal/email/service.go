package email

import (
	"context"
)

type Service interface {
	SendVerificationCode(ctx context.Context, to string, code string) error
	SendBookingConfirmation(ctx context.Context, to string, doctorName string, date string) error
	SendCancellation(ctx context.Context, to string, doctorName string, date string) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}
