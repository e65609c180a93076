package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appointmentFixture struct {
	uc              AppointmentUsecase
	appointmentRepo *fakeAppointmentRepo
	scheduleRepo    *fakeScheduleRepo
	audit           *fakeAuditService
	clock           *fakeClock
	doctorID        uuid.UUID
	patientID       uuid.UUID
}

func newAppointmentFixture(t *testing.T) *appointmentFixture {
	t.Helper()

	db := newTestDB(t)
	appointmentRepo := newFakeAppointmentRepo()
	scheduleRepo := newFakeScheduleRepo()
	audit := &fakeAuditService{}

	doctorID := uuid.New()
	scheduleRepo.schedules = append(scheduleRepo.schedules, &entity.WeeklySchedule{
		ID: 1, DoctorID: doctorID, DayOfWeek: 1,
		StartTime: "09:00", EndTime: "12:00",
		SlotDurationMinutes: 30, MaxPatientsPerSlot: 2,
	})

	// A week before the bookable Monday.
	clk := &fakeClock{now: time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)}

	uc := NewAppointmentUsecase(db, logrus.New(), &fakeTransactor{db: db},
		appointmentRepo, scheduleRepo, audit, clk)

	return &appointmentFixture{
		uc:              uc,
		appointmentRepo: appointmentRepo,
		scheduleRepo:    scheduleRepo,
		audit:           audit,
		clock:           clk,
		doctorID:        doctorID,
		patientID:       uuid.New(),
	}
}

func TestCreateAppointment_Success(t *testing.T) {
	f := newAppointmentFixture(t)

	result, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "09:30",
		Category:  "insured",
	})
	require.NoError(t, err)

	assert.Equal(t, "09:30", result.StartTime)
	assert.Equal(t, "10:00", result.EndTime)
	assert.Equal(t, string(entity.AppointmentStatusBooked), result.Status)
	assert.Equal(t, string(entity.AppointmentCategoryInsured), result.Category)
	assert.True(t, strings.HasPrefix(result.BookingCode, "BK-20260831-"), "unexpected booking code %q", result.BookingCode)
	assert.Len(t, result.BookingCode, len("BK-20260831-")+6)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, entity.AuditActionAppointmentCreate, f.audit.entries[0].Action)
}

func TestCreateAppointment_DefaultsToGeneralCategory(t *testing.T) {
	f := newAppointmentFixture(t)

	result, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "09:00",
	})
	require.NoError(t, err)

	assert.Equal(t, string(entity.AppointmentCategoryGeneral), result.Category)
}

func TestCreateAppointment_MisalignedStartTime(t *testing.T) {
	f := newAppointmentFixture(t)

	_, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "09:10",
	})
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
}

func TestCreateAppointment_OutsideScheduleBlock(t *testing.T) {
	f := newAppointmentFixture(t)

	_, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "13:00",
	})
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
}

func TestCreateAppointment_LastSlotOfBlockIsBookable(t *testing.T) {
	f := newAppointmentFixture(t)

	result, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "11:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "12:00", result.EndTime)
}

func TestCreateAppointment_SlotFull(t *testing.T) {
	f := newAppointmentFixture(t)
	date, _ := time.Parse("2006-01-02", mondayDate)

	for i := 0; i < 2; i++ {
		f.appointmentRepo.add(&entity.Appointment{
			DoctorID: f.doctorID, PatientID: uuid.New(), Date: date,
			StartTime: "09:00", EndTime: "09:30",
			Status: entity.AppointmentStatusBooked,
		})
	}

	_, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "09:00",
	})
	assert.ErrorIs(t, err, ErrSlotFull)
}

func TestCreateAppointment_DuplicateActiveBooking(t *testing.T) {
	f := newAppointmentFixture(t)
	date, _ := time.Parse("2006-01-02", mondayDate)

	f.appointmentRepo.add(&entity.Appointment{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date,
		StartTime: "09:00", EndTime: "09:30",
		Status: entity.AppointmentStatusBooked,
	})

	_, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "09:00",
	})
	assert.ErrorIs(t, err, ErrDuplicateBooking)
}

func TestCreateAppointment_CancelledBookingDoesNotBlockRebooking(t *testing.T) {
	f := newAppointmentFixture(t)
	date, _ := time.Parse("2006-01-02", mondayDate)

	f.appointmentRepo.add(&entity.Appointment{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date,
		StartTime: "09:00", EndTime: "09:30",
		Status: entity.AppointmentStatusCancelled,
	})

	_, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "09:00",
	})
	assert.NoError(t, err)
}

func TestCreateAppointment_PastDate(t *testing.T) {
	f := newAppointmentFixture(t)
	f.clock.now = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	_, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      mondayDate,
		StartTime: "09:00",
	})
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestCreateAppointment_InvalidDate(t *testing.T) {
	f := newAppointmentFixture(t)

	_, err := f.uc.Create(context.Background(), f.patientID, &dto.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		Date:      "08/31/2026",
		StartTime: "09:00",
	})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCancelAppointment_PatientOwnBooking(t *testing.T) {
	f := newAppointmentFixture(t)
	date, _ := time.Parse("2006-01-02", mondayDate)
	booking := f.appointmentRepo.add(&entity.Appointment{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date,
		StartTime: "09:00", EndTime: "09:30",
		Status: entity.AppointmentStatusBooked,
	})

	err := f.uc.Cancel(context.Background(), booking.ID, f.patientID, false)
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusCancelled, f.appointmentRepo.appointments[booking.ID].Status)
}

func TestCancelAppointment_OtherPatientForbidden(t *testing.T) {
	f := newAppointmentFixture(t)
	date, _ := time.Parse("2006-01-02", mondayDate)
	booking := f.appointmentRepo.add(&entity.Appointment{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date,
		StartTime: "09:00", EndTime: "09:30",
		Status: entity.AppointmentStatusBooked,
	})

	err := f.uc.Cancel(context.Background(), booking.ID, uuid.New(), false)
	assert.ErrorIs(t, err, ErrNotAppointmentOwner)
	assert.Equal(t, entity.AppointmentStatusBooked, f.appointmentRepo.appointments[booking.ID].Status)
}

func TestCancelAppointment_StaffMayCancelAny(t *testing.T) {
	f := newAppointmentFixture(t)
	date, _ := time.Parse("2006-01-02", mondayDate)
	booking := f.appointmentRepo.add(&entity.Appointment{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date,
		StartTime: "09:00", EndTime: "09:30",
		Status: entity.AppointmentStatusCheckedIn,
	})

	err := f.uc.Cancel(context.Background(), booking.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, entity.AppointmentStatusCancelled, f.appointmentRepo.appointments[booking.ID].Status)
}

func TestLifecycle_StartAndFinish(t *testing.T) {
	f := newAppointmentFixture(t)
	date, _ := time.Parse("2006-01-02", mondayDate)
	booking := f.appointmentRepo.add(&entity.Appointment{
		DoctorID: f.doctorID, PatientID: f.patientID, Date: date,
		StartTime: "09:00", EndTime: "09:30",
		Status: entity.AppointmentStatusCheckedIn,
	})
	actor := uuid.New()

	require.NoError(t, f.uc.Start(context.Background(), booking.ID, actor))
	assert.Equal(t, entity.AppointmentStatusInProgress, f.appointmentRepo.appointments[booking.ID].Status)

	require.NoError(t, f.uc.Finish(context.Background(), booking.ID, actor))
	assert.Equal(t, entity.AppointmentStatusCompleted, f.appointmentRepo.appointments[booking.ID].Status)
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	cases := []struct {
		name   string
		status entity.AppointmentStatus
		call   string
	}{
		{"start a booked appointment", entity.AppointmentStatusBooked, "start"},
		{"finish a booked appointment", entity.AppointmentStatusBooked, "finish"},
		{"finish a checked-in appointment", entity.AppointmentStatusCheckedIn, "finish"},
		{"cancel a completed appointment", entity.AppointmentStatusCompleted, "cancel"},
		{"cancel a no-show appointment", entity.AppointmentStatusNoShow, "cancel"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAppointmentFixture(t)
			date, _ := time.Parse("2006-01-02", mondayDate)
			booking := f.appointmentRepo.add(&entity.Appointment{
				DoctorID: f.doctorID, PatientID: f.patientID, Date: date,
				StartTime: "09:00", EndTime: "09:30",
				Status: tc.status,
			})
			actor := uuid.New()

			var err error
			switch tc.call {
			case "start":
				err = f.uc.Start(context.Background(), booking.ID, actor)
			case "finish":
				err = f.uc.Finish(context.Background(), booking.ID, actor)
			case "cancel":
				err = f.uc.Cancel(context.Background(), booking.ID, actor, true)
			}

			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tc.status, f.appointmentRepo.appointments[booking.ID].Status)
		})
	}
}

func TestTransition_UnknownAppointment(t *testing.T) {
	f := newAppointmentFixture(t)

	err := f.uc.Start(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
