package repository

import (
	"time"

	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByBookingCode(db *gorm.DB, code string) (*entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindWithFilter(db *gorm.DB, filter *entity.AppointmentFilter) ([]entity.Appointment, error)
	// FindActiveByDoctorAndDate returns booked and checked-in appointments
	// for the given doctor on the given calendar date.
	FindActiveByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error)
	// CountActiveBySlot counts slot occupancy: non-terminal appointments
	// for (doctor, date, start time).
	CountActiveBySlot(db *gorm.DB, doctorID uuid.UUID, date time.Time, startTime string) (int64, error)
	FindActiveByPatientAndSlot(db *gorm.DB, patientID, doctorID uuid.UUID, date time.Time, startTime string) (*entity.Appointment, error)
	// FindByStatusUpToDate returns appointments in the given status whose
	// date is on or before the given date. Used by the no-show sweeper.
	FindByStatusUpToDate(db *gorm.DB, status entity.AppointmentStatus, date time.Time) ([]entity.Appointment, error)
	// UpdateStatusFrom transitions status only when the current value
	// matches from; returns affected rows so callers detect lost races.
	UpdateStatusFrom(db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error)
}
