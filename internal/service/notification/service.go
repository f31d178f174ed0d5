package notification

import (
	"context"
	"time"

	"github.com/clinicore/clinic-api/internal/email"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/pkg/logger"
	"github.com/clinicore/clinic-api/pkg/messaging"
)

const (
	channelAppointments = "appointments"
	sendTimeout         = 10 * time.Second
)

// Service notifies participants after a booking or cancellation commits.
// Delivery is fire-and-forget: failures are logged and never surface to
// the operation that triggered them.
type Service interface {
	AppointmentBooked(appointment *model.Appointment, recipient string)
	AppointmentCanceled(appointment *model.Appointment, recipient string)
}

type service struct {
	broker   messaging.Broker
	emailSvc email.Service
	logger   *logger.Logger
}

func NewService(broker messaging.Broker, emailSvc email.Service, log *logger.Logger) Service {
	return &service{
		broker:   broker,
		emailSvc: emailSvc,
		logger:   log.WithComponent("notification"),
	}
}

func (s *service) AppointmentBooked(appointment *model.Appointment, recipient string) {
	event := s.buildEvent(model.EventAppointmentBooked, appointment)
	go s.deliver(event, recipient, appointment)
}

func (s *service) AppointmentCanceled(appointment *model.Appointment, recipient string) {
	event := s.buildEvent(model.EventAppointmentCanceled, appointment)
	go s.deliver(event, recipient, appointment)
}

func (s *service) buildEvent(eventType string, appointment *model.Appointment) *model.AppointmentEvent {
	return &model.AppointmentEvent{
		Type:            eventType,
		AppointmentID:   appointment.ID,
		PatientID:       appointment.PatientID,
		DoctorID:        appointment.DoctorID,
		AppointmentDate: appointment.AppointmentDate.Format(model.DateLayout),
		OccurredAt:      time.Now(),
	}
}

func (s *service) deliver(event *model.AppointmentEvent, recipient string, appointment *model.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if s.broker != nil {
		if err := s.broker.Publish(ctx, channelAppointments, event); err != nil {
			s.logger.Error(err, "failed to publish appointment event",
				"appointment_id", event.AppointmentID.String(), "type", event.Type)
		}
	}

	if recipient == "" || s.emailSvc == nil {
		return
	}

	doctorName := ""
	if appointment.Doctor != nil {
		doctorName = appointment.Doctor.Name
	}

	var err error
	switch event.Type {
	case model.EventAppointmentBooked:
		err = s.emailSvc.SendBookingConfirmation(ctx, recipient, doctorName, event.AppointmentDate)
	case model.EventAppointmentCanceled:
		err = s.emailSvc.SendCancellation(ctx, recipient, doctorName, event.AppointmentDate)
	}
	if err != nil {
		s.logger.Error(err, "failed to send appointment email",
			"appointment_id", event.AppointmentID.String(), "type", event.Type)
	}
}
