package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-clinic-booking/internal/converter"
	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"
	"go-clinic-booking/internal/domain/repository"
	"go-clinic-booking/internal/service"
	"go-clinic-booking/pkg/clock"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCheckedIn = errors.New("appointment is already checked in")
	ErrAlreadyCompleted = errors.New("appointment is already completed")
	ErrInactiveBooking  = errors.New("appointment is cancelled or marked as no-show")
	ErrCheckInTooEarly  = errors.New("check-in window is not open yet")
	ErrCheckInTooLate   = errors.New("check-in window has closed")
	ErrQueueConflict    = errors.New("could not assign queue number, please retry")
)

const (
	// Check-in opens 60 minutes before the slot start and closes 15
	// minutes after it.
	checkInOpenBeforeMinutes = 60
	checkInGraceAfterMinutes = 15

	// Attempts at claiming a queue number before giving up. Each lost
	// race recomputes MAX+1 against the committed winner.
	queueAssignMaxAttempts = 3
)

type CheckInUsecase interface {
	CheckIn(ctx context.Context, req *dto.CheckInRequest) (*dto.CheckInResponse, error)
	GetQueueBoard(ctx context.Context, doctorID uuid.UUID, dateStr string) (*dto.QueueBoardResponse, error)
}

// QueueBoardCache publishes and reads the last assigned queue number
// for the waiting-room display. Satisfied by service.QueueBoardService.
type QueueBoardCache interface {
	PublishQueueNumber(ctx context.Context, doctorID uuid.UUID, date time.Time, queueNumber int) error
	LatestQueueNumber(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)
}

type checkInUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	transactor      repository.Transactor
	appointmentRepo repository.AppointmentRepository
	checkInRepo     repository.CheckInLogRepository
	auditService    service.AuditService
	queueBoard      QueueBoardCache
	clock           clock.Clock
}

func NewCheckInUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	transactor repository.Transactor,
	appointmentRepo repository.AppointmentRepository,
	checkInRepo repository.CheckInLogRepository,
	auditService service.AuditService,
	queueBoard QueueBoardCache,
	clk clock.Clock,
) CheckInUsecase {
	return &checkInUsecase{
		db:              db,
		log:             log,
		transactor:      transactor,
		appointmentRepo: appointmentRepo,
		checkInRepo:     checkInRepo,
		auditService:    auditService,
		queueBoard:      queueBoard,
		clock:           clk,
	}
}

// CheckIn validates the booking and its time window, then assigns the
// next queue number for the doctor's day. Queue numbers are serialized
// by a composite unique index on (doctor, date, queue_number): when two
// check-ins race for the same number, one insert fails with a unique
// violation and the loser recomputes on a fresh transaction.
func (u *checkInUsecase) CheckIn(ctx context.Context, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
	code := strings.TrimSpace(req.BookingCode)
	if code == "" {
		return nil, ErrBookingNotFound
	}

	appointment, err := u.appointmentRepo.FindByBookingCode(u.db.WithContext(ctx), code)
	if err != nil {
		u.log.Warnf("Failed to find appointment by booking code: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrBookingNotFound
	}

	switch appointment.Status {
	case entity.AppointmentStatusBooked:
		// proceed
	case entity.AppointmentStatusCheckedIn, entity.AppointmentStatusInProgress:
		return nil, ErrAlreadyCheckedIn
	case entity.AppointmentStatusCompleted:
		return nil, ErrAlreadyCompleted
	default:
		return nil, ErrInactiveBooking
	}

	slotStart, err := appointment.SlotStart()
	if err != nil {
		u.log.Warnf("Appointment %s has malformed start time %q: %+v", appointment.ID, appointment.StartTime, err)
		return nil, err
	}

	now := u.clock.Now()
	diffMinutes := int(now.Sub(slotStart).Minutes())
	if diffMinutes < -checkInOpenBeforeMinutes {
		return nil, ErrCheckInTooEarly
	}
	if diffMinutes > checkInGraceAfterMinutes {
		return nil, ErrCheckInTooLate
	}

	var checkInLog *entity.CheckInLog
	for attempt := 1; attempt <= queueAssignMaxAttempts; attempt++ {
		checkInLog, err = u.tryCheckIn(ctx, appointment, now)
		if err == nil {
			break
		}
		if isDuplicateKeyError(err, "idx_checkin_queue_per_doctor_day") {
			u.log.Infof("Queue number race for doctor %s on %s (attempt %d), retrying",
				appointment.DoctorID, appointment.Date.Format("2006-01-02"), attempt)
			if attempt == queueAssignMaxAttempts {
				return nil, ErrQueueConflict
			}
			continue
		}
		if isDuplicateKeyError(err, "appointment_id") {
			// Another request checked this appointment in first.
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	// Best-effort cache update for the waiting-room board; the database
	// write above is already committed.
	boardCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = u.queueBoard.PublishQueueNumber(boardCtx, checkInLog.DoctorID, checkInLog.Date, checkInLog.QueueNumber)

	return &dto.CheckInResponse{
		QueueNumber: checkInLog.QueueNumber,
		BookingCode: appointment.BookingCode,
		Status:      string(entity.AppointmentStatusCheckedIn),
		CheckinTime: checkInLog.CheckinTime,
	}, nil
}

// tryCheckIn is one atomic attempt: read MAX queue number, insert the
// log at MAX+1, then flip the appointment status. The insert runs first
// so a duplicate check-in or a lost queue race fails before any status
// change.
func (u *checkInUsecase) tryCheckIn(ctx context.Context, appointment *entity.Appointment, now time.Time) (*entity.CheckInLog, error) {
	var checkInLog *entity.CheckInLog

	err := u.transactor.Transaction(ctx, func(tx *gorm.DB) error {
		maxQueue, err := u.checkInRepo.MaxQueueNumber(tx, appointment.DoctorID, appointment.Date)
		if err != nil {
			u.log.Warnf("Failed to read max queue number: %+v", err)
			return err
		}

		checkInLog = &entity.CheckInLog{
			AppointmentID: appointment.ID,
			DoctorID:      appointment.DoctorID,
			Date:          appointment.Date,
			QueueNumber:   maxQueue + 1,
			CheckinTime:   now,
			Method:        entity.CheckInMethodBookingCode,
		}
		if err := u.checkInRepo.Create(tx, checkInLog); err != nil {
			return err
		}

		rows, err := u.appointmentRepo.UpdateStatusFrom(tx, appointment.ID,
			entity.AppointmentStatusBooked, entity.AppointmentStatusCheckedIn)
		if err != nil {
			u.log.Warnf("Failed to update appointment status: %+v", err)
			return err
		}
		if rows == 0 {
			return ErrAlreadyCheckedIn
		}

		return u.auditService.LogUpdate(ctx, tx, nil, entity.AuditActionAppointmentCheckIn,
			"appointment", appointment.ID.String(),
			map[string]interface{}{"status": string(entity.AppointmentStatusBooked)},
			map[string]interface{}{
				"status":       string(entity.AppointmentStatusCheckedIn),
				"queue_number": checkInLog.QueueNumber,
			})
	})
	if err != nil {
		return nil, err
	}
	return checkInLog, nil
}

// GetQueueBoard returns the day's check-ins for one doctor plus the
// last called number from the Redis board. Redis misses fall back to
// the highest committed queue number.
func (u *checkInUsecase) GetQueueBoard(ctx context.Context, doctorID uuid.UUID, dateStr string) (*dto.QueueBoardResponse, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, ErrInvalidDate
	}

	logs, err := u.checkInRepo.FindByDoctorAndDate(u.db.WithContext(ctx), doctorID, date)
	if err != nil {
		u.log.Warnf("Failed to find check-in logs: %+v", err)
		return nil, err
	}

	lastCalled, err := u.queueBoard.LatestQueueNumber(ctx, doctorID, date)
	if err != nil {
		u.log.Warnf("Queue board cache unavailable, falling back to database: %+v", err)
		lastCalled = 0
	}
	if lastCalled == 0 && len(logs) > 0 {
		lastCalled = logs[len(logs)-1].QueueNumber
	}

	entries := converter.CheckInLogsToBoardEntries(logs)

	return &dto.QueueBoardResponse{
		DoctorID:   doctorID,
		Date:       dateStr,
		LastCalled: lastCalled,
		Entries:    entries,
		Total:      len(entries),
	}, nil
}
