package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CheckInRequest struct {
	BookingCode string `json:"booking_code" validate:"required"`
}

// Response DTOs

type CheckInResponse struct {
	QueueNumber int       `json:"queue_number"`
	BookingCode string    `json:"booking_code"`
	Status      string    `json:"status"`
	CheckinTime time.Time `json:"checkin_time"`
}

type QueueBoardEntry struct {
	QueueNumber int       `json:"queue_number"`
	BookingCode string    `json:"booking_code"`
	PatientName string    `json:"patient_name"`
	Status      string    `json:"status"`
	CheckinTime time.Time `json:"checkin_time"`
}

type QueueBoardResponse struct {
	DoctorID   uuid.UUID         `json:"doctor_id"`
	Date       string            `json:"date"`
	LastCalled int               `json:"last_called"`
	Entries    []QueueBoardEntry `json:"entries"`
	Total      int               `json:"total"`
}
