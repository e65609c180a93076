package repository

import (
	"errors"
	"time"

	"go-clinic-booking/internal/domain/entity"
	domainRepo "go-clinic-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type checkInLogRepository struct{}

func NewCheckInLogRepository() domainRepo.CheckInLogRepository {
	return &checkInLogRepository{}
}

func (r *checkInLogRepository) Create(db *gorm.DB, log *entity.CheckInLog) error {
	return db.Create(log).Error
}

func (r *checkInLogRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.CheckInLog, error) {
	var log entity.CheckInLog
	err := db.Where("appointment_id = ?", appointmentID).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

func (r *checkInLogRepository) MaxQueueNumber(db *gorm.DB, doctorID uuid.UUID, date time.Time) (int, error) {
	var max int
	err := db.Model(&entity.CheckInLog{}).
		Select("COALESCE(MAX(queue_number), 0)").
		Where("doctor_id = ? AND date = ?", doctorID, date.Format("2006-01-02")).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *checkInLogRepository) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.CheckInLog, error) {
	var logs []entity.CheckInLog
	err := db.Preload("Appointment.Patient.User").
		Where("doctor_id = ? AND date = ?", doctorID, date.Format("2006-01-02")).
		Order("queue_number ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
