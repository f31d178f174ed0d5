package booking

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

type fakeScheduleRepo struct {
	slots map[uuid.UUID]*model.ScheduleSlot
}

func (r *fakeScheduleRepo) Create(_ context.Context, slot *model.ScheduleSlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	r.slots[slot.ID] = slot
	return nil
}

func (r *fakeScheduleRepo) Get(_ context.Context, id uuid.UUID) (*model.ScheduleSlot, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, apperrors.NotFound("schedule slot")
	}
	return slot, nil
}

func (r *fakeScheduleRepo) Update(_ context.Context, slot *model.ScheduleSlot) error {
	r.slots[slot.ID] = slot
	return nil
}

func (r *fakeScheduleRepo) Delete(_ context.Context, id uuid.UUID, _ time.Time) error {
	delete(r.slots, id)
	return nil
}

func (r *fakeScheduleRepo) ListByDoctorWeekday(_ context.Context, _ uuid.UUID, _ time.Weekday) ([]*model.ScheduleSlot, error) {
	return nil, nil
}

func (r *fakeScheduleRepo) ListByRoomWeekday(_ context.Context, _ uuid.UUID, _ time.Weekday) ([]*model.ScheduleSlot, error) {
	return nil, nil
}

func (r *fakeScheduleRepo) ListByDoctor(_ context.Context, _ uuid.UUID) ([]*model.ScheduleSlot, error) {
	return nil, nil
}

// fakeAppointmentRepo mirrors the capacity rule the SQL layer enforces:
// the insert only succeeds while non-canceled bookings for the slot and
// date are below the slot's capacity.
type fakeAppointmentRepo struct {
	slots        map[uuid.UUID]*model.ScheduleSlot
	appointments map[uuid.UUID]*model.Appointment
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, appointment *model.Appointment) error {
	slot, ok := r.slots[appointment.ScheduleID]
	if !ok {
		return apperrors.NotFound("schedule slot")
	}
	count, _ := r.CountActiveForSlotDate(ctx, appointment.ScheduleID, appointment.AppointmentDate)
	if count >= slot.MaxCapacity {
		return apperrors.Conflict("schedule slot is fully booked for this date")
	}
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	copied := *appointment
	r.appointments[appointment.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	copied := *appointment
	return &copied, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus, cancelReason *string) error {
	appointment, ok := r.appointments[id]
	if !ok {
		return apperrors.NotFound("appointment")
	}
	if appointment.Status != from {
		return apperrors.Conflict("appointment status changed concurrently")
	}
	appointment.Status = to
	if cancelReason != nil {
		appointment.CancelReason = cancelReason
	}
	return nil
}

func (r *fakeAppointmentRepo) CountActiveForSlotDate(_ context.Context, scheduleID uuid.UUID, date time.Time) (int, error) {
	count := 0
	for _, a := range r.appointments {
		if a.ScheduleID == scheduleID && a.AppointmentDate.Equal(date) && a.Status != model.AppointmentStatusCanceled {
			count++
		}
	}
	return count, nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range r.appointments {
		if filters.PatientID != uuid.Nil && a.PatientID != filters.PatientID {
			continue
		}
		if filters.DoctorID != uuid.Nil && a.DoctorID != filters.DoctorID {
			continue
		}
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*model.Doctor
}

func (r *fakeDoctorRepo) Create(_ context.Context, doctor *model.Doctor) error {
	r.doctors[doctor.ID] = doctor
	return nil
}

func (r *fakeDoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, ok := r.doctors[id]
	if !ok {
		return nil, apperrors.NotFound("doctor")
	}
	return doctor, nil
}

func (r *fakeDoctorRepo) List(_ context.Context) ([]*model.Doctor, error) { return nil, nil }

type fakeRoomRepo struct {
	rooms map[uuid.UUID]*model.Room
}

func (r *fakeRoomRepo) Create(_ context.Context, room *model.Room) error {
	r.rooms[room.ID] = room
	return nil
}

func (r *fakeRoomRepo) Get(_ context.Context, id uuid.UUID) (*model.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, apperrors.NotFound("room")
	}
	return room, nil
}

func (r *fakeRoomRepo) List(_ context.Context) ([]*model.Room, error) { return nil, nil }

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Create(_ context.Context, patient *model.Patient) error {
	r.patients[patient.ID] = patient
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient")
	}
	return patient, nil
}

type fakeNotifier struct {
	booked   int
	canceled int
}

func (n *fakeNotifier) AppointmentBooked(_ *model.Appointment, _ string)   { n.booked++ }
func (n *fakeNotifier) AppointmentCanceled(_ *model.Appointment, _ string) { n.canceled++ }

type bookingFixture struct {
	svc       *Service
	notifier  *fakeNotifier
	slot      *model.ScheduleSlot
	doctorID  uuid.UUID
	patientID uuid.UUID
	patient   model.Actor
	reception model.Actor
	date      string
}

func newBookingFixture(t *testing.T, capacity int) *bookingFixture {
	t.Helper()

	doctorID := uuid.New()
	roomID := uuid.New()
	patientID := uuid.New()

	// First upcoming Monday at least one day out keeps the date valid.
	day := time.Now().AddDate(0, 0, 1)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}

	slot := &model.ScheduleSlot{
		Base:        model.Base{ID: uuid.New()},
		DoctorID:    doctorID,
		RoomID:      roomID,
		Weekday:     time.Monday,
		StartTime:   "09:00",
		EndTime:     "12:00",
		MaxCapacity: capacity,
	}

	scheduleRepo := &fakeScheduleRepo{slots: map[uuid.UUID]*model.ScheduleSlot{slot.ID: slot}}
	appointmentRepo := &fakeAppointmentRepo{
		slots:        scheduleRepo.slots,
		appointments: make(map[uuid.UUID]*model.Appointment),
	}
	doctors := &fakeDoctorRepo{doctors: map[uuid.UUID]*model.Doctor{
		doctorID: {Base: model.Base{ID: doctorID}, Name: "Dr. Mensah"},
	}}
	rooms := &fakeRoomRepo{rooms: map[uuid.UUID]*model.Room{
		roomID: {Base: model.Base{ID: roomID}, Name: "Consult 2"},
	}}
	patients := &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{
		patientID: {Base: model.Base{ID: patientID}, Name: "Ama", Email: "ama@example.com"},
	}}
	notifier := &fakeNotifier{}

	return &bookingFixture{
		svc:       NewService(appointmentRepo, scheduleRepo, doctors, rooms, patients, notifier, nil),
		notifier:  notifier,
		slot:      slot,
		doctorID:  doctorID,
		patientID: patientID,
		patient:   model.Actor{UserID: uuid.New(), Role: model.RolePatient, PatientID: &patientID},
		reception: model.Actor{UserID: uuid.New(), Role: model.RoleReceptionist},
		date:      day.Format(model.DateLayout),
	}
}

func (f *bookingFixture) bookReq() *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		PatientID:       f.patientID,
		DoctorID:        f.doctorID,
		ScheduleID:      f.slot.ID,
		AppointmentDate: f.date,
		AppointmentType: "regular",
		FeePaid:         50,
	}
}

func TestBook(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	appointment, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appointment.Status)
	assert.Equal(t, f.patientID, appointment.PatientID)
	require.NotNil(t, appointment.Doctor)
	assert.Equal(t, "Dr. Mensah", appointment.Doctor.Name)
	assert.Equal(t, 1, f.notifier.booked)
}

func TestBookCapacityExhausted(t *testing.T) {
	f := newBookingFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.reception, f.bookReq())
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, f.reception, f.bookReq())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestBookCancelFreesCapacity(t *testing.T) {
	f := newBookingFixture(t, 1)
	ctx := context.Background()

	appointment, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.patient, appointment.ID, "can't make it")
	require.NoError(t, err)

	// The canceled booking no longer counts against capacity.
	_, err = f.svc.Book(ctx, f.patient, f.bookReq())
	assert.NoError(t, err)
}

func TestBookPatientForSomeoneElse(t *testing.T) {
	f := newBookingFixture(t, 3)

	req := f.bookReq()
	req.PatientID = uuid.New()
	_, err := f.svc.Book(context.Background(), f.patient, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestBookDateValidation(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	tests := []struct {
		name string
		date string
	}{
		{"malformed", "01-02-2026"},
		{"past", "2020-01-06"},
		{"wrong weekday", nextWeekday(time.Tuesday).Format(model.DateLayout)},
		{"beyond horizon", nextWeekday(time.Monday).Add(MaxAdvanceBooking).Format(model.DateLayout)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.bookReq()
			req.AppointmentDate = tt.date
			_, err := f.svc.Book(ctx, f.reception, req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func nextWeekday(weekday time.Weekday) time.Time {
	day := time.Now().AddDate(0, 0, 1)
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func TestBookDoctorSlotMismatch(t *testing.T) {
	f := newBookingFixture(t, 3)

	req := f.bookReq()
	req.DoctorID = uuid.New()
	_, err := f.svc.Book(context.Background(), f.reception, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCheckIn(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	appointment, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)

	confirmed, err := f.svc.CheckIn(ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)

	// A second check-in is rejected.
	_, err = f.svc.CheckIn(ctx, appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCheckInCanceledAppointment(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	appointment, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.reception, appointment.ID, "")
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCancelPolicy(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	appointment, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)
	_, err = f.svc.CheckIn(ctx, appointment.ID)
	require.NoError(t, err)

	// Once confirmed, the patient can no longer cancel.
	_, err = f.svc.Cancel(ctx, f.patient, appointment.ID, "changed my mind")
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	// Reception can.
	canceled, err := f.svc.Cancel(ctx, f.reception, appointment.ID, "patient called")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CancelReason)
	assert.Equal(t, "patient called", *canceled.CancelReason)
	assert.Equal(t, 1, f.notifier.canceled)

	// Canceling twice conflicts.
	_, err = f.svc.Cancel(ctx, f.reception, appointment.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCancelOtherPatientsAppointment(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	appointment, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)

	otherID := uuid.New()
	other := model.Actor{UserID: uuid.New(), Role: model.RolePatient, PatientID: &otherID}
	_, err = f.svc.Cancel(ctx, other, appointment.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestGetScopedToPatient(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	appointment, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)

	otherID := uuid.New()
	other := model.Actor{UserID: uuid.New(), Role: model.RolePatient, PatientID: &otherID}
	_, err = f.svc.Get(ctx, other, appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	got, err := f.svc.Get(ctx, f.patient, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.ID, got.ID)
}

func TestListScopedToPatient(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)

	// A patient listing with someone else's filter still only sees
	// their own bookings.
	appointments, err := f.svc.List(ctx, f.patient, &model.AppointmentFilters{PatientID: uuid.New()})
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, f.patientID, appointments[0].PatientID)
}

func TestOccupancy(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.patient, f.bookReq())
	require.NoError(t, err)

	date, err := time.Parse(model.DateLayout, f.date)
	require.NoError(t, err)

	count, err := f.svc.Occupancy(ctx, f.slot.ID, date)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
