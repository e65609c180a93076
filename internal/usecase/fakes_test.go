package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

// newTestDB builds a *gorm.DB that never touches a real database. The
// fakes below ignore the db argument entirely; the handle only feeds
// the WithContext plumbing in the usecases.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)
	return db
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

// fakeTransactor runs the callback directly. Fakes keep their own
// state, so there is nothing to roll back; tests that need failure
// paths inject errors through the repo hooks instead.
type fakeTransactor struct {
	db *gorm.DB
}

func (f *fakeTransactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(f.db)
}

type auditEntry struct {
	Action   string
	EntityID string
}

type fakeAuditService struct {
	entries []auditEntry
}

func (f *fakeAuditService) LogCreate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, newValue interface{}) error {
	f.entries = append(f.entries, auditEntry{Action: action, EntityID: entityID})
	return nil
}

func (f *fakeAuditService) LogUpdate(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, oldValue, newValue interface{}) error {
	f.entries = append(f.entries, auditEntry{Action: action, EntityID: entityID})
	return nil
}

func (f *fakeAuditService) LogDelete(ctx context.Context, tx *gorm.DB, userID *uuid.UUID, action, entityName, entityID string, oldValue interface{}) error {
	f.entries = append(f.entries, auditEntry{Action: action, EntityID: entityID})
	return nil
}

type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*entity.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: map[uuid.UUID]*entity.Appointment{}}
}

func (f *fakeAppointmentRepo) add(a *entity.Appointment) *entity.Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.appointments[a.ID] = a
	return a
}

func (f *fakeAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	for _, existing := range f.appointments {
		if existing.BookingCode == appointment.BookingCode {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_appointments_booking_code"}
		}
	}
	f.appointments[appointment.ID] = appointment
	return nil
}

func (f *fakeAppointmentRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAppointmentRepo) FindByBookingCode(db *gorm.DB, code string) (*entity.Appointment, error) {
	for _, a := range f.appointments {
		if a.BookingCode == code {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) FindWithFilter(db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range f.appointments {
		if filter.DoctorID != uuid.Nil && a.DoctorID != filter.DoctorID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Date != "" && a.Date.Format("2006-01-02") != filter.Date {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAppointmentRepo) FindActiveByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && sameDate(a.Date, date) && a.IsActive() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) CountActiveBySlot(db *gorm.DB, doctorID uuid.UUID, date time.Time, startTime string) (int64, error) {
	var count int64
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && sameDate(a.Date, date) && a.StartTime == startTime && a.IsActive() {
			count++
		}
	}
	return count, nil
}

func (f *fakeAppointmentRepo) FindActiveByPatientAndSlot(db *gorm.DB, patientID, doctorID uuid.UUID, date time.Time, startTime string) (*entity.Appointment, error) {
	for _, a := range f.appointments {
		if a.PatientID == patientID && a.DoctorID == doctorID && sameDate(a.Date, date) && a.StartTime == startTime && a.IsActive() {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) FindByStatusUpToDate(db *gorm.DB, status entity.AppointmentStatus, date time.Time) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range f.appointments {
		if a.Status == status && !a.Date.After(date) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) UpdateStatusFrom(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error) {
	a, ok := f.appointments[id]
	if !ok || a.Status != from {
		return 0, nil
	}
	a.Status = to
	return 1, nil
}

type fakeCheckInRepo struct {
	logs   []*entity.CheckInLog
	nextID int64

	// beforeCreate lets tests simulate a concurrent check-in committing
	// between the MAX read and the insert.
	beforeCreate func(log *entity.CheckInLog)
}

func newFakeCheckInRepo() *fakeCheckInRepo {
	return &fakeCheckInRepo{}
}

func (f *fakeCheckInRepo) Create(db *gorm.DB, log *entity.CheckInLog) error {
	if f.beforeCreate != nil {
		f.beforeCreate(log)
	}
	for _, existing := range f.logs {
		if existing.AppointmentID == log.AppointmentID {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_check_in_logs_appointment_id"}
		}
		if existing.DoctorID == log.DoctorID && sameDate(existing.Date, log.Date) && existing.QueueNumber == log.QueueNumber {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_checkin_queue_per_doctor_day"}
		}
	}
	f.nextID++
	log.ID = f.nextID
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeCheckInRepo) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.CheckInLog, error) {
	for _, log := range f.logs {
		if log.AppointmentID == appointmentID {
			copied := *log
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeCheckInRepo) MaxQueueNumber(db *gorm.DB, doctorID uuid.UUID, date time.Time) (int, error) {
	max := 0
	for _, log := range f.logs {
		if log.DoctorID == doctorID && sameDate(log.Date, date) && log.QueueNumber > max {
			max = log.QueueNumber
		}
	}
	return max, nil
}

func (f *fakeCheckInRepo) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.CheckInLog, error) {
	var out []entity.CheckInLog
	for _, log := range f.logs {
		if log.DoctorID == doctorID && sameDate(log.Date, date) {
			out = append(out, *log)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].QueueNumber > out[j].QueueNumber; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

type fakeScheduleRepo struct {
	schedules []*entity.WeeklySchedule
	nextID    int
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{}
}

func (f *fakeScheduleRepo) Create(db *gorm.DB, schedule *entity.WeeklySchedule) error {
	f.nextID++
	schedule.ID = f.nextID
	f.schedules = append(f.schedules, schedule)
	return nil
}

func (f *fakeScheduleRepo) FindByID(db *gorm.DB, id int) (*entity.WeeklySchedule, error) {
	for _, s := range f.schedules {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeScheduleRepo) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.WeeklySchedule, error) {
	var out []entity.WeeklySchedule
	for _, s := range f.schedules {
		if s.DoctorID == doctorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) FindByDoctorAndDay(db *gorm.DB, doctorID uuid.UUID, dayOfWeek int) ([]entity.WeeklySchedule, error) {
	var out []entity.WeeklySchedule
	for _, s := range f.schedules {
		if s.DoctorID == doctorID && s.DayOfWeek == dayOfWeek {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) FindAll(db *gorm.DB) ([]entity.WeeklySchedule, error) {
	out := make([]entity.WeeklySchedule, 0, len(f.schedules))
	for _, s := range f.schedules {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeScheduleRepo) Update(db *gorm.DB, schedule *entity.WeeklySchedule) error {
	for i, s := range f.schedules {
		if s.ID == schedule.ID {
			copied := *schedule
			f.schedules[i] = &copied
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeScheduleRepo) Delete(db *gorm.DB, id int) (int64, error) {
	for i, s := range f.schedules {
		if s.ID == id {
			f.schedules = append(f.schedules[:i], f.schedules[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type fakeDoctorProfileRepo struct {
	profiles map[uuid.UUID]*entity.DoctorProfile
}

func newFakeDoctorProfileRepo() *fakeDoctorProfileRepo {
	return &fakeDoctorProfileRepo{profiles: map[uuid.UUID]*entity.DoctorProfile{}}
}

func (f *fakeDoctorProfileRepo) Create(db *gorm.DB, profile *entity.DoctorProfile) error {
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *fakeDoctorProfileRepo) FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeDoctorProfileRepo) FindAll(db *gorm.DB) ([]entity.DoctorProfile, error) {
	out := make([]entity.DoctorProfile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeDoctorProfileRepo) Update(db *gorm.DB, profile *entity.DoctorProfile) error {
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *fakeDoctorProfileRepo) Delete(db *gorm.DB, userID uuid.UUID) (int64, error) {
	if _, ok := f.profiles[userID]; !ok {
		return 0, nil
	}
	delete(f.profiles, userID)
	return 1, nil
}

type fakeQueueBoard struct {
	published map[string]int
}

func newFakeQueueBoard() *fakeQueueBoard {
	return &fakeQueueBoard{published: map[string]int{}}
}

func (f *fakeQueueBoard) key(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s:%s", doctorID, date.Format("2006-01-02"))
}

func (f *fakeQueueBoard) PublishQueueNumber(ctx context.Context, doctorID uuid.UUID, date time.Time, queueNumber int) error {
	f.published[f.key(doctorID, date)] = queueNumber
	return nil
}

func (f *fakeQueueBoard) LatestQueueNumber(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	return f.published[f.key(doctorID, date)], nil
}

func sameDate(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}
