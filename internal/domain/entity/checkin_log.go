package entity

import (
	"time"

	"github.com/google/uuid"
)

// Check-in method constants
const (
	CheckInMethodBookingCode = "booking_code"
	CheckInMethodStaff       = "staff"
)

// CheckInLog records a successful check-in. Exactly one row per
// appointment; never updated or deleted.
//
// DoctorID and Date are denormalized from the appointment so the
// composite unique index below can serialize queue-number assignment
// per (doctor, date): a concurrent check-in computing the same next
// number hits a unique violation and retries.
type CheckInLog struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AppointmentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"appointment_id"`
	DoctorID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_checkin_queue_per_doctor_day" json:"doctor_id"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:idx_checkin_queue_per_doctor_day" json:"date"`
	QueueNumber   int       `gorm:"not null;uniqueIndex:idx_checkin_queue_per_doctor_day" json:"queue_number"`
	CheckinTime   time.Time `gorm:"not null" json:"checkin_time"`
	Method        string    `gorm:"type:varchar(30);not null" json:"method"`

	// Relationships
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

func (CheckInLog) TableName() string {
	return "check_in_logs"
}
