package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusBooked     AppointmentStatus = "booked"
	AppointmentStatusCheckedIn  AppointmentStatus = "checked_in"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no_show"
)

// AppointmentCategory distinguishes billing categories at booking time.
type AppointmentCategory string

const (
	AppointmentCategoryGeneral AppointmentCategory = "general"
	AppointmentCategoryInsured AppointmentCategory = "insured"
)

// allowedTransitions encodes the appointment lifecycle. Completed,
// cancelled and no_show are terminal.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusBooked:     {AppointmentStatusCheckedIn, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusCheckedIn:  {AppointmentStatusInProgress, AppointmentStatusCancelled},
	AppointmentStatusInProgress: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// IsTerminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Appointment represents a patient's booked visit with a doctor.
// Date and times are immutable once created; only Status changes.
type Appointment struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID    uuid.UUID           `gorm:"type:uuid;not null;index:idx_appointment_doctor_date" json:"doctor_id"`
	PatientID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"patient_id"`
	Date        time.Time           `gorm:"type:date;not null;index:idx_appointment_doctor_date" json:"date"`
	StartTime   string              `gorm:"type:time;not null" json:"start_time"` // HH:MM
	EndTime     string              `gorm:"type:time;not null" json:"end_time"`   // HH:MM
	Status      AppointmentStatus   `gorm:"type:varchar(20);not null;default:'booked';index" json:"status"`
	BookingCode string              `gorm:"type:varchar(50);uniqueIndex;not null" json:"booking_code"`
	Category    AppointmentCategory `gorm:"type:varchar(20);not null;default:'general'" json:"category"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor     DoctorProfile  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient    PatientProfile `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	CheckInLog *CheckInLog    `gorm:"foreignKey:AppointmentID" json:"check_in_log,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, s := range allowedTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// IsActive reports whether the appointment still occupies its slot.
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentStatusBooked || a.Status == AppointmentStatusCheckedIn
}

// SlotStart returns the scheduled start as a full timestamp, combining
// the calendar date with the HH:MM start time.
func (a *Appointment) SlotStart() (time.Time, error) {
	return combineDateTime(a.Date, a.StartTime)
}

// SlotEnd returns the scheduled end as a full timestamp.
func (a *Appointment) SlotEnd() (time.Time, error) {
	return combineDateTime(a.Date, a.EndTime)
}

func combineDateTime(date time.Time, hhmm string) (time.Time, error) {
	minutes, err := ParseMinutes(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, date.Location()), nil
}
