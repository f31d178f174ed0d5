package medical

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
}

func (r *fakeAppointmentRepo) Create(_ context.Context, appointment *model.Appointment) error {
	r.appointments[appointment.ID] = appointment
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	return appointment, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus, _ *string) error {
	appointment, ok := r.appointments[id]
	if !ok {
		return apperrors.NotFound("appointment")
	}
	if appointment.Status != from {
		return apperrors.Conflict("appointment status changed concurrently")
	}
	appointment.Status = to
	return nil
}

func (r *fakeAppointmentRepo) CountActiveForSlotDate(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

// fakeRecordRepo mimics the transactional insert-and-complete: one
// record per appointment, and a confirmed appointment moves to completed
// with the insert.
type fakeRecordRepo struct {
	appointments *fakeAppointmentRepo
	records      map[uuid.UUID]*model.MedicalRecord
	byAppt       map[uuid.UUID]uuid.UUID
}

func (r *fakeRecordRepo) CreateWithCompletion(_ context.Context, record *model.MedicalRecord) error {
	appointment, ok := r.appointments.appointments[record.AppointmentID]
	if !ok {
		return apperrors.NotFound("appointment")
	}
	switch appointment.Status {
	case model.AppointmentStatusPending:
		return apperrors.Conflict("appointment must be checked in before recording a visit")
	case model.AppointmentStatusCanceled:
		return apperrors.Conflict("cannot record a visit for a canceled appointment")
	}
	if _, exists := r.byAppt[record.AppointmentID]; exists {
		return apperrors.Conflict("medical record already exists for this appointment")
	}

	record.ID = uuid.New()
	r.records[record.ID] = record
	r.byAppt[record.AppointmentID] = record.ID
	if appointment.Status == model.AppointmentStatusConfirmed {
		appointment.Status = model.AppointmentStatusCompleted
	}
	return nil
}

func (r *fakeRecordRepo) Get(_ context.Context, id uuid.UUID) (*model.MedicalRecord, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, apperrors.NotFound("medical record")
	}
	return record, nil
}

func (r *fakeRecordRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	recordID, ok := r.byAppt[appointmentID]
	if !ok {
		return nil, apperrors.NotFound("medical record")
	}
	return r.records[recordID], nil
}

func (r *fakeRecordRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	var out []*model.MedicalRecord
	for _, record := range r.records {
		appointment := r.appointments.appointments[record.AppointmentID]
		if appointment != nil && appointment.PatientID == patientID {
			out = append(out, record)
		}
	}
	return out, nil
}

type medicalFixture struct {
	svc         *Service
	appointment *model.Appointment
	doctorID    uuid.UUID
	patientID   uuid.UUID
	doctor      model.Actor
}

func newMedicalFixture(t *testing.T, status model.AppointmentStatus) *medicalFixture {
	t.Helper()

	doctorID := uuid.New()
	patientID := uuid.New()
	appointment := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    status,
	}

	appointments := &fakeAppointmentRepo{appointments: map[uuid.UUID]*model.Appointment{
		appointment.ID: appointment,
	}}
	records := &fakeRecordRepo{
		appointments: appointments,
		records:      make(map[uuid.UUID]*model.MedicalRecord),
		byAppt:       make(map[uuid.UUID]uuid.UUID),
	}

	return &medicalFixture{
		svc:         NewService(records, appointments),
		appointment: appointment,
		doctorID:    doctorID,
		patientID:   patientID,
		doctor:      model.Actor{UserID: uuid.New(), Role: model.RoleDoctor, DoctorID: &doctorID},
	}
}

func TestCreateRecordCompletesAppointment(t *testing.T) {
	f := newMedicalFixture(t, model.AppointmentStatusConfirmed)

	record, err := f.svc.CreateRecord(context.Background(), f.doctor, &model.CreateMedicalRecordRequest{
		AppointmentID: f.appointment.ID,
		Diagnosis:     "seasonal allergy",
		Prescription:  "antihistamine",
	})
	require.NoError(t, err)
	assert.Equal(t, "seasonal allergy", record.Diagnosis)
	assert.Equal(t, model.AppointmentStatusCompleted, f.appointment.Status)
}

func TestCreateRecordDuplicate(t *testing.T) {
	f := newMedicalFixture(t, model.AppointmentStatusConfirmed)
	ctx := context.Background()

	req := &model.CreateMedicalRecordRequest{AppointmentID: f.appointment.ID, Diagnosis: "flu"}
	_, err := f.svc.CreateRecord(ctx, f.doctor, req)
	require.NoError(t, err)

	_, err = f.svc.CreateRecord(ctx, f.doctor, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateRecordStatusGuards(t *testing.T) {
	tests := []struct {
		name   string
		status model.AppointmentStatus
	}{
		{"pending appointment", model.AppointmentStatusPending},
		{"canceled appointment", model.AppointmentStatusCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMedicalFixture(t, tt.status)
			_, err := f.svc.CreateRecord(context.Background(), f.doctor, &model.CreateMedicalRecordRequest{
				AppointmentID: f.appointment.ID,
				Diagnosis:     "flu",
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsConflict(err))
		})
	}
}

func TestCreateRecordAuthorization(t *testing.T) {
	f := newMedicalFixture(t, model.AppointmentStatusConfirmed)
	ctx := context.Background()
	req := &model.CreateMedicalRecordRequest{AppointmentID: f.appointment.ID, Diagnosis: "flu"}

	// Another doctor is not the treating doctor.
	otherID := uuid.New()
	other := model.Actor{UserID: uuid.New(), Role: model.RoleDoctor, DoctorID: &otherID}
	_, err := f.svc.CreateRecord(ctx, other, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	// Reception cannot file records at all.
	_, err = f.svc.CreateRecord(ctx, model.Actor{UserID: uuid.New(), Role: model.RoleReceptionist}, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	// Admins can.
	_, err = f.svc.CreateRecord(ctx, model.Actor{UserID: uuid.New(), Role: model.RoleAdmin}, req)
	assert.NoError(t, err)
}

func TestRecordPatientScoping(t *testing.T) {
	f := newMedicalFixture(t, model.AppointmentStatusConfirmed)
	ctx := context.Background()

	_, err := f.svc.CreateRecord(ctx, f.doctor, &model.CreateMedicalRecordRequest{
		AppointmentID: f.appointment.ID,
		Diagnosis:     "flu",
	})
	require.NoError(t, err)

	owner := model.Actor{UserID: uuid.New(), Role: model.RolePatient, PatientID: &f.patientID}
	record, err := f.svc.GetByAppointment(ctx, owner, f.appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, "flu", record.Diagnosis)

	otherID := uuid.New()
	other := model.Actor{UserID: uuid.New(), Role: model.RolePatient, PatientID: &otherID}
	_, err = f.svc.GetByAppointment(ctx, other, f.appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.ListPatientRecords(ctx, other, f.patientID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	records, err := f.svc.ListPatientRecords(ctx, owner, f.patientID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
