package repository

import (
	"errors"

	"go-clinic-booking/internal/domain/entity"
	domainRepo "go-clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type weeklyScheduleRepository struct{}

func NewWeeklyScheduleRepository() domainRepo.WeeklyScheduleRepository {
	return &weeklyScheduleRepository{}
}

func (r *weeklyScheduleRepository) Create(db *gorm.DB, schedule *entity.WeeklySchedule) error {
	return db.Create(schedule).Error
}

func (r *weeklyScheduleRepository) FindByID(db *gorm.DB, id int) (*entity.WeeklySchedule, error) {
	var schedule entity.WeeklySchedule
	err := db.Preload("Doctor.User").Where("id = ?", id).First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *weeklyScheduleRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.WeeklySchedule, error) {
	var schedules []entity.WeeklySchedule
	err := db.Where("doctor_id = ?", doctorID).
		Order("day_of_week ASC, start_time ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// FindByDoctorAndDay preserves insertion order within a day: blocks are
// returned by id, not by start time, so slot emission follows the order
// schedules were configured in.
func (r *weeklyScheduleRepository) FindByDoctorAndDay(db *gorm.DB, doctorID uuid.UUID, dayOfWeek int) ([]entity.WeeklySchedule, error) {
	var schedules []entity.WeeklySchedule
	err := db.Where("doctor_id = ? AND day_of_week = ?", doctorID, dayOfWeek).
		Order("id ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *weeklyScheduleRepository) FindAll(db *gorm.DB) ([]entity.WeeklySchedule, error) {
	var schedules []entity.WeeklySchedule
	err := db.Preload("Doctor").Preload("Doctor.User").
		Order("doctor_id ASC, day_of_week ASC, start_time ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *weeklyScheduleRepository) Update(db *gorm.DB, schedule *entity.WeeklySchedule) error {
	return db.Omit("Doctor").Save(schedule).Error
}

func (r *weeklyScheduleRepository) Delete(db *gorm.DB, id int) (int64, error) {
	affected := db.Where("id = ?", id).Delete(&entity.WeeklySchedule{})
	return affected.RowsAffected, affected.Error
}
