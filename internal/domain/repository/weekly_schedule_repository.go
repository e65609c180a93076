package repository

import (
	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WeeklyScheduleRepository interface {
	Create(db *gorm.DB, schedule *entity.WeeklySchedule) error
	FindByID(db *gorm.DB, id int) (*entity.WeeklySchedule, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.WeeklySchedule, error)
	FindByDoctorAndDay(db *gorm.DB, doctorID uuid.UUID, dayOfWeek int) ([]entity.WeeklySchedule, error)
	FindAll(db *gorm.DB) ([]entity.WeeklySchedule, error)
	Update(db *gorm.DB, schedule *entity.WeeklySchedule) error
	Delete(db *gorm.DB, id int) (int64, error)
}
