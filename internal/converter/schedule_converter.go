package converter

import (
	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"

	"github.com/google/uuid"
)

// ScheduleToResponse converts a WeeklySchedule entity to ScheduleResponse DTO
func ScheduleToResponse(schedule *entity.WeeklySchedule) *dto.ScheduleResponse {
	if schedule == nil {
		return nil
	}

	response := &dto.ScheduleResponse{
		ID:                  schedule.ID,
		DoctorID:            schedule.DoctorID,
		DayOfWeek:           schedule.DayOfWeek,
		StartTime:           schedule.StartTime,
		EndTime:             schedule.EndTime,
		SlotDurationMinutes: schedule.SlotDurationMinutes,
		MaxPatientsPerSlot:  schedule.MaxPatientsPerSlot,
		CreatedAt:           schedule.CreatedAt,
		UpdatedAt:           schedule.UpdatedAt,
	}

	// Include doctor info if available
	if schedule.Doctor.UserID != uuid.Nil {
		response.Doctor = DoctorProfileToResponse(&schedule.Doctor)
	}

	return response
}

// SchedulesToResponses converts a slice of WeeklySchedule entities
func SchedulesToResponses(schedules []entity.WeeklySchedule) []dto.ScheduleResponse {
	responses := make([]dto.ScheduleResponse, len(schedules))
	for i := range schedules {
		responses[i] = *ScheduleToResponse(&schedules[i])
	}
	return responses
}
