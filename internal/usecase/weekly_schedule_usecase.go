package usecase

import (
	"context"
	"errors"
	"strconv"

	"go-clinic-booking/internal/converter"
	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"
	"go-clinic-booking/internal/domain/repository"
	"go-clinic-booking/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrInvalidTimeFormat = errors.New("invalid time format, use HH:MM")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrScheduleTooShort  = errors.New("schedule block is shorter than one slot")
)

type WeeklyScheduleUsecase interface {
	Create(ctx context.Context, actorID uuid.UUID, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	GetByID(ctx context.Context, id int) (*dto.ScheduleResponse, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.ScheduleListResponse, error)
	ListAll(ctx context.Context) (*dto.ScheduleListResponse, error)
	Update(ctx context.Context, actorID uuid.UUID, id int, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	Delete(ctx context.Context, actorID uuid.UUID, id int) error
}

type weeklyScheduleUsecase struct {
	db                *gorm.DB
	log               *logrus.Logger
	transactor        repository.Transactor
	scheduleRepo      repository.WeeklyScheduleRepository
	doctorProfileRepo repository.DoctorProfileRepository
	auditService      service.AuditService
}

func NewWeeklyScheduleUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	transactor repository.Transactor,
	scheduleRepo repository.WeeklyScheduleRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	auditService service.AuditService,
) WeeklyScheduleUsecase {
	return &weeklyScheduleUsecase{
		db:                db,
		log:               log,
		transactor:        transactor,
		scheduleRepo:      scheduleRepo,
		doctorProfileRepo: doctorProfileRepo,
		auditService:      auditService,
	}
}

func (u *weeklyScheduleUsecase) Create(ctx context.Context, actorID uuid.UUID, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := validateScheduleTimes(req.StartTime, req.EndTime, req.SlotDurationMinutes); err != nil {
		return nil, err
	}

	db := u.db.WithContext(ctx)

	doctor, err := u.doctorProfileRepo.FindByUserID(db, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	schedule := &entity.WeeklySchedule{
		DoctorID:            req.DoctorID,
		DayOfWeek:           *req.DayOfWeek,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		MaxPatientsPerSlot:  req.MaxPatientsPerSlot,
	}

	err = u.transactor.Transaction(ctx, func(tx *gorm.DB) error {
		if err := u.scheduleRepo.Create(tx, schedule); err != nil {
			if isForeignKeyError(err, "doctor") {
				return ErrDoctorNotFound
			}
			u.log.Warnf("Failed to create schedule: %+v", err)
			return err
		}

		return u.auditService.LogCreate(ctx, tx, &actorID, entity.AuditActionScheduleCreate,
			"weekly_schedule", scheduleEntityID(schedule.ID), map[string]interface{}{
				"doctor_id":   schedule.DoctorID.String(),
				"day_of_week": schedule.DayOfWeek,
				"start_time":  schedule.StartTime,
				"end_time":    schedule.EndTime,
			})
	})
	if err != nil {
		return nil, err
	}

	return converter.ScheduleToResponse(schedule), nil
}

func (u *weeklyScheduleUsecase) GetByID(ctx context.Context, id int) (*dto.ScheduleResponse, error) {
	schedule, err := u.scheduleRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find schedule: %+v", err)
		return nil, err
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}

	return converter.ScheduleToResponse(schedule), nil
}

func (u *weeklyScheduleUsecase) ListByDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.ScheduleListResponse, error) {
	schedules, err := u.scheduleRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to list schedules: %+v", err)
		return nil, err
	}

	return &dto.ScheduleListResponse{
		Schedules: converter.SchedulesToResponses(schedules),
		Total:     len(schedules),
	}, nil
}

func (u *weeklyScheduleUsecase) ListAll(ctx context.Context) (*dto.ScheduleListResponse, error) {
	schedules, err := u.scheduleRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to list schedules: %+v", err)
		return nil, err
	}

	return &dto.ScheduleListResponse{
		Schedules: converter.SchedulesToResponses(schedules),
		Total:     len(schedules),
	}, nil
}

// Update changes a schedule block. Existing appointments keep their
// booked times; the change only affects future slot computation.
func (u *weeklyScheduleUsecase) Update(ctx context.Context, actorID uuid.UUID, id int, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	schedule, err := u.scheduleRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find schedule: %+v", err)
		return nil, err
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}

	oldValue := map[string]interface{}{
		"day_of_week":           schedule.DayOfWeek,
		"start_time":            schedule.StartTime,
		"end_time":              schedule.EndTime,
		"slot_duration_minutes": schedule.SlotDurationMinutes,
		"max_patients_per_slot": schedule.MaxPatientsPerSlot,
	}

	if req.DayOfWeek != nil {
		schedule.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != "" {
		schedule.StartTime = req.StartTime
	}
	if req.EndTime != "" {
		schedule.EndTime = req.EndTime
	}
	if req.SlotDurationMinutes != nil {
		schedule.SlotDurationMinutes = *req.SlotDurationMinutes
	}
	if req.MaxPatientsPerSlot != nil {
		schedule.MaxPatientsPerSlot = *req.MaxPatientsPerSlot
	}

	if err := validateScheduleTimes(schedule.StartTime, schedule.EndTime, schedule.SlotDurationMinutes); err != nil {
		return nil, err
	}

	err = u.transactor.Transaction(ctx, func(tx *gorm.DB) error {
		if err := u.scheduleRepo.Update(tx, schedule); err != nil {
			u.log.Warnf("Failed to update schedule: %+v", err)
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, &actorID, entity.AuditActionScheduleUpdate,
			"weekly_schedule", scheduleEntityID(id), oldValue, map[string]interface{}{
				"day_of_week":           schedule.DayOfWeek,
				"start_time":            schedule.StartTime,
				"end_time":              schedule.EndTime,
				"slot_duration_minutes": schedule.SlotDurationMinutes,
				"max_patients_per_slot": schedule.MaxPatientsPerSlot,
			})
	})
	if err != nil {
		return nil, err
	}

	return converter.ScheduleToResponse(schedule), nil
}

func (u *weeklyScheduleUsecase) Delete(ctx context.Context, actorID uuid.UUID, id int) error {
	schedule, err := u.scheduleRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find schedule: %+v", err)
		return err
	}
	if schedule == nil {
		return ErrScheduleNotFound
	}

	return u.transactor.Transaction(ctx, func(tx *gorm.DB) error {
		rows, err := u.scheduleRepo.Delete(tx, id)
		if err != nil {
			u.log.Warnf("Failed to delete schedule: %+v", err)
			return err
		}
		if rows == 0 {
			return ErrScheduleNotFound
		}

		return u.auditService.LogDelete(ctx, tx, &actorID, entity.AuditActionScheduleDelete,
			"weekly_schedule", scheduleEntityID(id), map[string]interface{}{
				"doctor_id":   schedule.DoctorID.String(),
				"day_of_week": schedule.DayOfWeek,
				"start_time":  schedule.StartTime,
				"end_time":    schedule.EndTime,
			})
	})
}

func validateScheduleTimes(startTime, endTime string, slotDuration int) error {
	startMin, err := entity.ParseMinutes(startTime)
	if err != nil {
		return ErrInvalidTimeFormat
	}
	endMin, err := entity.ParseMinutes(endTime)
	if err != nil {
		return ErrInvalidTimeFormat
	}
	if endMin <= startMin {
		return ErrInvalidTimeRange
	}
	if endMin-startMin < slotDuration {
		return ErrScheduleTooShort
	}
	return nil
}

func scheduleEntityID(id int) string {
	return strconv.Itoa(id)
}
