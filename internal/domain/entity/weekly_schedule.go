package entity

import (
	"time"

	"github.com/google/uuid"
)

// WeeklySchedule is a recurring availability template for a doctor.
// A doctor may have several blocks on the same weekday (e.g. morning and
// afternoon sessions).
type WeeklySchedule struct {
	ID                  int       `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID            uuid.UUID `gorm:"type:uuid;not null;index:idx_schedule_doctor_day" json:"doctor_id"`
	DayOfWeek           int       `gorm:"not null;index:idx_schedule_doctor_day" json:"day_of_week"` // 0 = Sunday .. 6 = Saturday
	StartTime           string    `gorm:"type:time;not null" json:"start_time"`                      // HH:MM
	EndTime             string    `gorm:"type:time;not null" json:"end_time"`                        // HH:MM
	SlotDurationMinutes int       `gorm:"not null" json:"slot_duration_minutes"`
	MaxPatientsPerSlot  int       `gorm:"not null" json:"max_patients_per_slot"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (WeeklySchedule) TableName() string {
	return "weekly_schedules"
}

// ParseMinutes converts an HH:MM wall-clock string to minutes since midnight.
func ParseMinutes(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes since midnight as an HH:MM string.
func FormatMinutes(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("15:04")
}
