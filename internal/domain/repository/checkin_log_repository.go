package repository

import (
	"time"

	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckInLogRepository interface {
	Create(db *gorm.DB, log *entity.CheckInLog) error
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.CheckInLog, error)
	// MaxQueueNumber returns the highest queue number assigned for
	// (doctor, date), or 0 when no check-ins exist yet.
	MaxQueueNumber(db *gorm.DB, doctorID uuid.UUID, date time.Time) (int, error)
	// FindByDoctorAndDate returns the day's check-ins ordered by queue number.
	FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.CheckInLog, error)
}
