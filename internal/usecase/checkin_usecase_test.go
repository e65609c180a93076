package usecase

import (
	"context"
	"testing"
	"time"

	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkInFixture struct {
	uc              CheckInUsecase
	appointmentRepo *fakeAppointmentRepo
	checkInRepo     *fakeCheckInRepo
	queueBoard      *fakeQueueBoard
	audit           *fakeAuditService
	clock           *fakeClock
	doctorID        uuid.UUID
	date            time.Time
}

func newCheckInFixture(t *testing.T) *checkInFixture {
	t.Helper()

	db := newTestDB(t)
	appointmentRepo := newFakeAppointmentRepo()
	checkInRepo := newFakeCheckInRepo()
	queueBoard := newFakeQueueBoard()
	audit := &fakeAuditService{}

	date, err := time.Parse("2006-01-02", mondayDate)
	require.NoError(t, err)

	// 09:30 on the appointment day, inside the window of a 10:00 slot.
	clk := &fakeClock{now: date.Add(9*time.Hour + 30*time.Minute)}

	uc := NewCheckInUsecase(db, logrus.New(), &fakeTransactor{db: db},
		appointmentRepo, checkInRepo, audit, queueBoard, clk)

	return &checkInFixture{
		uc:              uc,
		appointmentRepo: appointmentRepo,
		checkInRepo:     checkInRepo,
		queueBoard:      queueBoard,
		audit:           audit,
		clock:           clk,
		doctorID:        uuid.New(),
		date:            date,
	}
}

func (f *checkInFixture) addBooking(code, startTime string, status entity.AppointmentStatus) *entity.Appointment {
	startMin, _ := entity.ParseMinutes(startTime)
	return f.appointmentRepo.add(&entity.Appointment{
		DoctorID:    f.doctorID,
		PatientID:   uuid.New(),
		Date:        f.date,
		StartTime:   startTime,
		EndTime:     entity.FormatMinutes(startMin + 30),
		Status:      status,
		BookingCode: code,
	})
}

func TestCheckIn_AssignsFirstQueueNumber(t *testing.T) {
	f := newCheckInFixture(t)
	booking := f.addBooking("BK-20260831-AAAAAA", "10:00", entity.AppointmentStatusBooked)

	result, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: booking.BookingCode})
	require.NoError(t, err)

	assert.Equal(t, 1, result.QueueNumber)
	assert.Equal(t, booking.BookingCode, result.BookingCode)
	assert.Equal(t, string(entity.AppointmentStatusCheckedIn), result.Status)
	assert.Equal(t, entity.AppointmentStatusCheckedIn, f.appointmentRepo.appointments[booking.ID].Status)

	// Board was updated and the audit trail written.
	published, _ := f.queueBoard.LatestQueueNumber(context.Background(), f.doctorID, f.date)
	assert.Equal(t, 1, published)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, entity.AuditActionAppointmentCheckIn, f.audit.entries[0].Action)
}

func TestCheckIn_QueueNumbersIncrementPerDoctorDay(t *testing.T) {
	f := newCheckInFixture(t)
	first := f.addBooking("BK-20260831-AAAAAA", "10:00", entity.AppointmentStatusBooked)
	second := f.addBooking("BK-20260831-BBBBBB", "10:00", entity.AppointmentStatusBooked)

	r1, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: first.BookingCode})
	require.NoError(t, err)
	r2, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: second.BookingCode})
	require.NoError(t, err)

	assert.Equal(t, 1, r1.QueueNumber)
	assert.Equal(t, 2, r2.QueueNumber)
}

func TestCheckIn_OtherDoctorHasIndependentSequence(t *testing.T) {
	f := newCheckInFixture(t)
	booking := f.addBooking("BK-20260831-AAAAAA", "10:00", entity.AppointmentStatusBooked)

	otherDoctor := uuid.New()
	other := f.appointmentRepo.add(&entity.Appointment{
		DoctorID:    otherDoctor,
		PatientID:   uuid.New(),
		Date:        f.date,
		StartTime:   "10:00",
		EndTime:     "10:30",
		Status:      entity.AppointmentStatusBooked,
		BookingCode: "BK-20260831-CCCCCC",
	})

	r1, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: booking.BookingCode})
	require.NoError(t, err)
	r2, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: other.BookingCode})
	require.NoError(t, err)

	assert.Equal(t, 1, r1.QueueNumber)
	assert.Equal(t, 1, r2.QueueNumber)
}

func TestCheckIn_WindowBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		now     time.Duration // offset from midnight
		wantErr error
	}{
		{"one minute before window opens", 8*time.Hour + 59*time.Minute, ErrCheckInTooEarly},
		{"exactly 60 minutes before", 9 * time.Hour, nil},
		{"at slot start", 10 * time.Hour, nil},
		{"exactly 15 minutes after", 10*time.Hour + 15*time.Minute, nil},
		{"sixteen minutes after", 10*time.Hour + 16*time.Minute, ErrCheckInTooLate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newCheckInFixture(t)
			booking := f.addBooking("BK-20260831-AAAAAA", "10:00", entity.AppointmentStatusBooked)
			f.clock.now = f.date.Add(tc.now)

			_, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: booking.BookingCode})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, entity.AppointmentStatusBooked, f.appointmentRepo.appointments[booking.ID].Status)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckIn_UnknownBookingCode(t *testing.T) {
	f := newCheckInFixture(t)

	_, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: "BK-20260831-ZZZZZZ"})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCheckIn_StatusRejections(t *testing.T) {
	cases := []struct {
		status  entity.AppointmentStatus
		wantErr error
	}{
		{entity.AppointmentStatusCheckedIn, ErrAlreadyCheckedIn},
		{entity.AppointmentStatusInProgress, ErrAlreadyCheckedIn},
		{entity.AppointmentStatusCompleted, ErrAlreadyCompleted},
		{entity.AppointmentStatusCancelled, ErrInactiveBooking},
		{entity.AppointmentStatusNoShow, ErrInactiveBooking},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newCheckInFixture(t)
			booking := f.addBooking("BK-20260831-AAAAAA", "10:00", tc.status)

			_, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: booking.BookingCode})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCheckIn_RetriesAfterLostQueueRace(t *testing.T) {
	f := newCheckInFixture(t)
	booking := f.addBooking("BK-20260831-AAAAAA", "10:00", entity.AppointmentStatusBooked)

	// Simulate a concurrent check-in committing queue number 1 between
	// the MAX read and our insert, once.
	raced := false
	f.checkInRepo.beforeCreate = func(log *entity.CheckInLog) {
		if raced {
			return
		}
		raced = true
		f.checkInRepo.logs = append(f.checkInRepo.logs, &entity.CheckInLog{
			AppointmentID: uuid.New(),
			DoctorID:      log.DoctorID,
			Date:          log.Date,
			QueueNumber:   log.QueueNumber,
			CheckinTime:   log.CheckinTime,
			Method:        entity.CheckInMethodBookingCode,
		})
	}

	result, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: booking.BookingCode})
	require.NoError(t, err)

	// The winner took 1; the retry recomputed and got 2.
	assert.Equal(t, 2, result.QueueNumber)
	assert.Equal(t, entity.AppointmentStatusCheckedIn, f.appointmentRepo.appointments[booking.ID].Status)
}

func TestCheckIn_GivesUpAfterRepeatedRaces(t *testing.T) {
	f := newCheckInFixture(t)
	booking := f.addBooking("BK-20260831-AAAAAA", "10:00", entity.AppointmentStatusBooked)

	f.checkInRepo.beforeCreate = func(log *entity.CheckInLog) {
		f.checkInRepo.logs = append(f.checkInRepo.logs, &entity.CheckInLog{
			AppointmentID: uuid.New(),
			DoctorID:      log.DoctorID,
			Date:          log.Date,
			QueueNumber:   log.QueueNumber,
			CheckinTime:   log.CheckinTime,
			Method:        entity.CheckInMethodBookingCode,
		})
	}

	_, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: booking.BookingCode})
	assert.ErrorIs(t, err, ErrQueueConflict)
	assert.Equal(t, entity.AppointmentStatusBooked, f.appointmentRepo.appointments[booking.ID].Status)
}

func TestCheckIn_DuplicateRequestLosesOnAppointmentUniqueness(t *testing.T) {
	f := newCheckInFixture(t)
	booking := f.addBooking("BK-20260831-AAAAAA", "10:00", entity.AppointmentStatusBooked)

	// A competing request for the same appointment committed first but
	// this request still sees the stale booked row.
	f.checkInRepo.logs = append(f.checkInRepo.logs, &entity.CheckInLog{
		AppointmentID: booking.ID,
		DoctorID:      f.doctorID,
		Date:          f.date,
		QueueNumber:   7,
		CheckinTime:   f.clock.now,
		Method:        entity.CheckInMethodBookingCode,
	})

	_, err := f.uc.CheckIn(context.Background(), &dto.CheckInRequest{BookingCode: booking.BookingCode})
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestGetQueueBoard_ReturnsEntriesInQueueOrder(t *testing.T) {
	f := newCheckInFixture(t)

	for i, code := range []string{"BK-20260831-AAAAAA", "BK-20260831-BBBBBB"} {
		booking := f.addBooking(code, "10:00", entity.AppointmentStatusBooked)
		f.checkInRepo.logs = append(f.checkInRepo.logs, &entity.CheckInLog{
			AppointmentID: booking.ID,
			DoctorID:      f.doctorID,
			Date:          f.date,
			QueueNumber:   2 - i, // inserted out of order on purpose
			CheckinTime:   f.clock.now,
			Method:        entity.CheckInMethodBookingCode,
			Appointment:   *booking,
		})
	}

	board, err := f.uc.GetQueueBoard(context.Background(), f.doctorID, mondayDate)
	require.NoError(t, err)

	require.Len(t, board.Entries, 2)
	assert.Equal(t, 1, board.Entries[0].QueueNumber)
	assert.Equal(t, 2, board.Entries[1].QueueNumber)
	assert.Equal(t, 2, board.LastCalled)
	assert.Equal(t, 2, board.Total)
}

func TestGetQueueBoard_InvalidDate(t *testing.T) {
	f := newCheckInFixture(t)

	_, err := f.uc.GetQueueBoard(context.Background(), f.doctorID, "today")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
