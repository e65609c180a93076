package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateScheduleRequest struct {
	DoctorID            uuid.UUID `json:"doctor_id" validate:"required"`
	DayOfWeek           *int      `json:"day_of_week" validate:"required,gte=0,lte=6"` // 0 = Sunday
	StartTime           string    `json:"start_time" validate:"required"`              // Format: HH:MM
	EndTime             string    `json:"end_time" validate:"required"`                // Format: HH:MM
	SlotDurationMinutes int       `json:"slot_duration_minutes" validate:"required,min=5,max=240"`
	MaxPatientsPerSlot  int       `json:"max_patients_per_slot" validate:"required,min=1"`
}

type UpdateScheduleRequest struct {
	DayOfWeek           *int   `json:"day_of_week" validate:"omitempty,gte=0,lte=6"`
	StartTime           string `json:"start_time" validate:"omitempty"` // Format: HH:MM
	EndTime             string `json:"end_time" validate:"omitempty"`   // Format: HH:MM
	SlotDurationMinutes *int   `json:"slot_duration_minutes" validate:"omitempty,min=5,max=240"`
	MaxPatientsPerSlot  *int   `json:"max_patients_per_slot" validate:"omitempty,min=1"`
}

// Response DTOs

type ScheduleResponse struct {
	ID                  int             `json:"id"`
	DoctorID            uuid.UUID       `json:"doctor_id"`
	Doctor              *DoctorResponse `json:"doctor,omitempty"`
	DayOfWeek           int             `json:"day_of_week"`
	StartTime           string          `json:"start_time"`
	EndTime             string          `json:"end_time"`
	SlotDurationMinutes int             `json:"slot_duration_minutes"`
	MaxPatientsPerSlot  int             `json:"max_patients_per_slot"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Total     int                `json:"total"`
}

// SlotListResponse carries the computed open slots for one doctor-day.
type SlotListResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []string  `json:"slots"`
	Total    int       `json:"total"`
}
