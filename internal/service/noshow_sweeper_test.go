package service

import (
	"context"
	"testing"
	"time"

	"go-clinic-booking/config"
	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time {
	return c.now
}

// stubAppointmentRepo implements only the two methods the sweeper uses;
// the rest of the interface is unused here.
type stubAppointmentRepo struct {
	appointments map[uuid.UUID]*entity.Appointment
}

func (s *stubAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return nil
}

func (s *stubAppointmentRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) FindByBookingCode(db *gorm.DB, code string) (*entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) FindWithFilter(db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) FindActiveByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) CountActiveBySlot(db *gorm.DB, doctorID uuid.UUID, date time.Time, startTime string) (int64, error) {
	return 0, nil
}

func (s *stubAppointmentRepo) FindActiveByPatientAndSlot(db *gorm.DB, patientID, doctorID uuid.UUID, date time.Time, startTime string) (*entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) FindByStatusUpToDate(db *gorm.DB, status entity.AppointmentStatus, date time.Time) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range s.appointments {
		if a.Status == status && !a.Date.After(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *stubAppointmentRepo) UpdateStatusFrom(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error) {
	a, ok := s.appointments[id]
	if !ok || a.Status != from {
		return 0, nil
	}
	a.Status = to
	return 1, nil
}

func newSweeperFixture(t *testing.T, now time.Time) (*NoShowSweeper, *stubAppointmentRepo) {
	t.Helper()

	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)

	repo := &stubAppointmentRepo{appointments: map[uuid.UUID]*entity.Appointment{}}
	sweeper := NewNoShowSweeper(db, logrus.New(), repo, &stubClock{now: now}, config.SweepConfig{
		CronSpec:    "*/5 * * * *",
		GracePeriod: 30 * time.Minute,
	})
	return sweeper, repo
}

func addAppointment(repo *stubAppointmentRepo, date time.Time, endTime string, status entity.AppointmentStatus) *entity.Appointment {
	a := &entity.Appointment{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Date:      date,
		StartTime: "09:00",
		EndTime:   endTime,
		Status:    status,
	}
	repo.appointments[a.ID] = a
	return a
}

func TestSweep_MarksOverdueBookedAsNoShow(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	// 10:01 on the same day: the 09:30 slot end plus 30 minutes grace
	// has elapsed.
	sweeper, repo := newSweeperFixture(t, day.Add(10*time.Hour+1*time.Minute))

	overdue := addAppointment(repo, day, "09:30", entity.AppointmentStatusBooked)

	swept, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, swept)
	assert.Equal(t, entity.AppointmentStatusNoShow, repo.appointments[overdue.ID].Status)
}

func TestSweep_RespectsGracePeriod(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	// 09:45: slot ended at 09:30 but grace runs until 10:00.
	sweeper, repo := newSweeperFixture(t, day.Add(9*time.Hour+45*time.Minute))

	pending := addAppointment(repo, day, "09:30", entity.AppointmentStatusBooked)

	swept, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, swept)
	assert.Equal(t, entity.AppointmentStatusBooked, repo.appointments[pending.ID].Status)
}

func TestSweep_SkipsNonBookedStatuses(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sweeper, repo := newSweeperFixture(t, day.Add(23*time.Hour))

	checkedIn := addAppointment(repo, day, "09:30", entity.AppointmentStatusCheckedIn)
	completed := addAppointment(repo, day, "09:30", entity.AppointmentStatusCompleted)
	cancelled := addAppointment(repo, day, "09:30", entity.AppointmentStatusCancelled)

	swept, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, swept)
	assert.Equal(t, entity.AppointmentStatusCheckedIn, repo.appointments[checkedIn.ID].Status)
	assert.Equal(t, entity.AppointmentStatusCompleted, repo.appointments[completed.ID].Status)
	assert.Equal(t, entity.AppointmentStatusCancelled, repo.appointments[cancelled.ID].Status)
}

func TestSweep_SweepsPreviousDays(t *testing.T) {
	yesterday := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	sweeper, repo := newSweeperFixture(t, time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC))

	stale := addAppointment(repo, yesterday, "09:30", entity.AppointmentStatusBooked)

	swept, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, swept)
	assert.Equal(t, entity.AppointmentStatusNoShow, repo.appointments[stale.ID].Status)
}

func TestSweep_SkipsMalformedEndTime(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sweeper, repo := newSweeperFixture(t, day.Add(23*time.Hour))

	broken := addAppointment(repo, day, "later", entity.AppointmentStatusBooked)
	fine := addAppointment(repo, day, "09:30", entity.AppointmentStatusBooked)

	swept, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, swept)
	assert.Equal(t, entity.AppointmentStatusBooked, repo.appointments[broken.ID].Status)
	assert.Equal(t, entity.AppointmentStatusNoShow, repo.appointments[fine.ID].Status)
}

func TestSweep_IsIdempotent(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sweeper, repo := newSweeperFixture(t, day.Add(23*time.Hour))

	addAppointment(repo, day, "09:30", entity.AppointmentStatusBooked)

	first, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	second, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}
