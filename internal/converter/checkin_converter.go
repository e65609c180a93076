package converter

import (
	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"
)

// CheckInLogsToBoardEntries converts a day's check-in logs to queue board entries
func CheckInLogsToBoardEntries(logs []entity.CheckInLog) []dto.QueueBoardEntry {
	entries := make([]dto.QueueBoardEntry, len(logs))
	for i := range logs {
		log := &logs[i]
		entries[i] = dto.QueueBoardEntry{
			QueueNumber: log.QueueNumber,
			BookingCode: log.Appointment.BookingCode,
			PatientName: log.Appointment.Patient.User.FullName,
			Status:      string(log.Appointment.Status),
			CheckinTime: log.CheckinTime,
		}
	}
	return entries
}
