package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
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
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotNotAvailable    = errors.New("slot is not within the doctor's schedule")
	ErrSlotFull            = errors.New("slot is fully booked")
	ErrDuplicateBooking    = errors.New("patient already has an active booking for this slot")
	ErrPastDate            = errors.New("cannot book an appointment in the past")
	ErrInvalidTransition   = errors.New("appointment status does not allow this transition")
	ErrNotAppointmentOwner = errors.New("appointment belongs to another patient")
)

const bookingCodeAttempts = 3

type AppointmentUsecase interface {
	Create(ctx context.Context, patientID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error)
	List(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID, isStaff bool) error
	Start(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
	Finish(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	transactor      repository.Transactor
	appointmentRepo repository.AppointmentRepository
	scheduleRepo    repository.WeeklyScheduleRepository
	auditService    service.AuditService
	clock           clock.Clock
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	transactor repository.Transactor,
	appointmentRepo repository.AppointmentRepository,
	scheduleRepo repository.WeeklyScheduleRepository,
	auditService service.AuditService,
	clk clock.Clock,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		transactor:      transactor,
		appointmentRepo: appointmentRepo,
		scheduleRepo:    scheduleRepo,
		auditService:    auditService,
		clock:           clk,
	}
}

// Create books a slot for a patient. The requested start time must fall
// on a slot boundary of one of the doctor's schedule blocks for that
// weekday, the slot must have remaining capacity, and the patient may
// not hold another active booking for the same slot.
func (u *appointmentUsecase) Create(ctx context.Context, patientID uuid.UUID, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	now := u.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return nil, ErrPastDate
	}

	schedule, err := u.matchSchedule(ctx, req.DoctorID, date, req.StartTime)
	if err != nil {
		return nil, err
	}

	startMin, _ := entity.ParseMinutes(req.StartTime)
	endTime := entity.FormatMinutes(startMin + schedule.SlotDurationMinutes)

	category := entity.AppointmentCategory(req.Category)
	if category == "" {
		category = entity.AppointmentCategoryGeneral
	}

	var appointment *entity.Appointment
	for attempt := 1; attempt <= bookingCodeAttempts; attempt++ {
		appointment = &entity.Appointment{
			DoctorID:    req.DoctorID,
			PatientID:   patientID,
			Date:        date,
			StartTime:   req.StartTime,
			EndTime:     endTime,
			Status:      entity.AppointmentStatusBooked,
			BookingCode: generateBookingCode(date),
			Category:    category,
		}

		err = u.transactor.Transaction(ctx, func(tx *gorm.DB) error {
			count, err := u.appointmentRepo.CountActiveBySlot(tx, req.DoctorID, date, req.StartTime)
			if err != nil {
				u.log.Warnf("Failed to count slot occupancy: %+v", err)
				return err
			}
			if count >= int64(schedule.MaxPatientsPerSlot) {
				return ErrSlotFull
			}

			existing, err := u.appointmentRepo.FindActiveByPatientAndSlot(tx, patientID, req.DoctorID, date, req.StartTime)
			if err != nil {
				u.log.Warnf("Failed to check duplicate booking: %+v", err)
				return err
			}
			if existing != nil {
				return ErrDuplicateBooking
			}

			if err := u.appointmentRepo.Create(tx, appointment); err != nil {
				return err
			}

			return u.auditService.LogCreate(ctx, tx, &patientID, entity.AuditActionAppointmentCreate,
				"appointment", appointment.ID.String(), map[string]interface{}{
					"doctor_id":    appointment.DoctorID.String(),
					"date":         req.Date,
					"start_time":   appointment.StartTime,
					"booking_code": appointment.BookingCode,
				})
		})
		if err == nil {
			break
		}
		if isDuplicateKeyError(err, "booking_code") && attempt < bookingCodeAttempts {
			continue
		}
		if isForeignKeyError(err, "doctor") {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetByID(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) ListByPatient(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindByPatientID(u.db.WithContext(ctx), patientID)
	if err != nil {
		u.log.Warnf("Failed to list patient appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) List(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			return nil, ErrInvalidDate
		}
	}

	appointments, err := u.appointmentRepo.FindWithFilter(u.db.WithContext(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// Cancel moves a booked, checked-in or in-progress appointment to
// cancelled. Patients may only cancel their own appointments; staff may
// cancel any.
func (u *appointmentUsecase) Cancel(ctx context.Context, id uuid.UUID, actorID uuid.UUID, isStaff bool) error {
	return u.transition(ctx, id, actorID, entity.AppointmentStatusCancelled, entity.AuditActionAppointmentCancel, func(a *entity.Appointment) error {
		if !isStaff && a.PatientID != actorID {
			return ErrNotAppointmentOwner
		}
		return nil
	})
}

// Start moves a checked-in appointment to in_progress when the doctor
// calls the patient.
func (u *appointmentUsecase) Start(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return u.transition(ctx, id, actorID, entity.AppointmentStatusInProgress, entity.AuditActionAppointmentStart, nil)
}

// Finish completes an in-progress appointment.
func (u *appointmentUsecase) Finish(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return u.transition(ctx, id, actorID, entity.AppointmentStatusCompleted, entity.AuditActionAppointmentFinish, nil)
}

// transition applies a guarded lifecycle change. The status update is
// conditional on the current value so a concurrent change loses exactly
// one of the races.
func (u *appointmentUsecase) transition(ctx context.Context, id uuid.UUID, actorID uuid.UUID, to entity.AppointmentStatus, auditAction string, guard func(*entity.Appointment) error) error {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment: %+v", err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}

	if guard != nil {
		if err := guard(appointment); err != nil {
			return err
		}
	}

	if !appointment.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	from := appointment.Status

	return u.transactor.Transaction(ctx, func(tx *gorm.DB) error {
		rows, err := u.appointmentRepo.UpdateStatusFrom(tx, id, from, to)
		if err != nil {
			u.log.Warnf("Failed to update appointment status: %+v", err)
			return err
		}
		if rows == 0 {
			return ErrInvalidTransition
		}

		return u.auditService.LogUpdate(ctx, tx, &actorID, auditAction,
			"appointment", id.String(),
			map[string]interface{}{"status": string(from)},
			map[string]interface{}{"status": string(to)})
	})
}

// matchSchedule finds the schedule block whose slot grid contains the
// requested start time.
func (u *appointmentUsecase) matchSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string) (*entity.WeeklySchedule, error) {
	startMin, err := entity.ParseMinutes(startTime)
	if err != nil {
		return nil, ErrSlotNotAvailable
	}

	schedules, err := u.scheduleRepo.FindByDoctorAndDay(u.db.WithContext(ctx), doctorID, int(date.Weekday()))
	if err != nil {
		u.log.Warnf("Failed to find schedules: %+v", err)
		return nil, err
	}

	for i := range schedules {
		schedule := &schedules[i]
		blockStart, err := entity.ParseMinutes(schedule.StartTime)
		if err != nil {
			continue
		}
		blockEnd, err := entity.ParseMinutes(schedule.EndTime)
		if err != nil {
			continue
		}
		duration := schedule.SlotDurationMinutes
		if duration <= 0 {
			continue
		}
		if startMin < blockStart || startMin+duration > blockEnd {
			continue
		}
		if (startMin-blockStart)%duration != 0 {
			continue
		}
		return schedule, nil
	}

	return nil, ErrSlotNotAvailable
}

// generateBookingCode builds a short human-readable code like
// BK-20260830-X7K2P9. Collisions are possible but the booking_code
// unique index catches them and the caller retries.
func generateBookingCode(date time.Time) string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// crypto/rand failure means the process is in serious
			// trouble; fall back to a time-derived byte.
			suffix[i] = alphabet[time.Now().UnixNano()%int64(len(alphabet))]
			continue
		}
		suffix[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("BK-%s-%s", date.Format("20060102"), string(suffix))
}
