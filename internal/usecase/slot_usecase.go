package usecase

import (
	"context"
	"errors"
	"time"

	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"
	"go-clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")

type SlotUsecase interface {
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, dateStr string) (*dto.SlotListResponse, error)
}

type slotUsecase struct {
	db                *gorm.DB
	log               *logrus.Logger
	doctorProfileRepo repository.DoctorProfileRepository
	scheduleRepo      repository.WeeklyScheduleRepository
	appointmentRepo   repository.AppointmentRepository
}

func NewSlotUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	doctorProfileRepo repository.DoctorProfileRepository,
	scheduleRepo repository.WeeklyScheduleRepository,
	appointmentRepo repository.AppointmentRepository,
) SlotUsecase {
	return &slotUsecase{
		db:                db,
		log:               log,
		doctorProfileRepo: doctorProfileRepo,
		scheduleRepo:      scheduleRepo,
		appointmentRepo:   appointmentRepo,
	}
}

// GetAvailableSlots computes the open slot start times for one doctor on
// one calendar date. Slots come from the doctor's weekly schedule blocks
// for that weekday; a slot is open while its active appointment count is
// below the block's capacity.
func (u *slotUsecase) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, dateStr string) (*dto.SlotListResponse, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, ErrInvalidDate
	}

	db := u.db.WithContext(ctx)

	doctor, err := u.doctorProfileRepo.FindByUserID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	schedules, err := u.scheduleRepo.FindByDoctorAndDay(db, doctorID, int(date.Weekday()))
	if err != nil {
		u.log.Warnf("Failed to find schedules: %+v", err)
		return nil, err
	}

	// Occupancy per start time, counting only appointments that still
	// hold their slot (booked or checked in).
	active, err := u.appointmentRepo.FindActiveByDoctorAndDate(db, doctorID, date)
	if err != nil {
		u.log.Warnf("Failed to find active appointments: %+v", err)
		return nil, err
	}
	occupancy := make(map[string]int, len(active))
	for i := range active {
		occupancy[active[i].StartTime]++
	}

	slots := []string{}
	for i := range schedules {
		schedule := &schedules[i]

		startMin, err := entity.ParseMinutes(schedule.StartTime)
		if err != nil {
			u.log.Warnf("Skipping schedule %d with malformed start time %q", schedule.ID, schedule.StartTime)
			continue
		}
		endMin, err := entity.ParseMinutes(schedule.EndTime)
		if err != nil {
			u.log.Warnf("Skipping schedule %d with malformed end time %q", schedule.ID, schedule.EndTime)
			continue
		}
		duration := schedule.SlotDurationMinutes
		if duration <= 0 {
			u.log.Warnf("Skipping schedule %d with non-positive slot duration %d", schedule.ID, duration)
			continue
		}

		// A slot must fit entirely inside the block; a partial trailing
		// interval is not offered.
		for m := startMin; m+duration <= endMin; m += duration {
			slot := entity.FormatMinutes(m)
			if occupancy[slot] < schedule.MaxPatientsPerSlot {
				slots = append(slots, slot)
			}
		}
	}

	return &dto.SlotListResponse{
		DoctorID: doctorID,
		Date:     dateStr,
		Slots:    slots,
		Total:    len(slots),
	}, nil
}
