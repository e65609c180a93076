package handler

import (
	"encoding/json"
	"net/http"

	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/usecase"
	"go-clinic-booking/pkg/response"
	"go-clinic-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type CheckInHandler struct {
	checkInUsecase usecase.CheckInUsecase
	validator      *validator.CustomValidator
}

func NewCheckInHandler(checkInUsecase usecase.CheckInUsecase, validator *validator.CustomValidator) *CheckInHandler {
	return &CheckInHandler{
		checkInUsecase: checkInUsecase,
		validator:      validator,
	}
}

// CheckIn is used by the front-desk kiosk: the patient enters the
// booking code and receives a queue number.
func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.checkInUsecase.CheckIn(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrBookingNotFound:
			response.NotFound(w, "Booking not found")
		case usecase.ErrAlreadyCheckedIn:
			response.Conflict(w, "Appointment is already checked in")
		case usecase.ErrAlreadyCompleted:
			response.Conflict(w, "Appointment is already completed")
		case usecase.ErrInactiveBooking:
			response.Error(w, http.StatusUnprocessableEntity, "Appointment is cancelled or marked as no-show", nil)
		case usecase.ErrCheckInTooEarly:
			response.Error(w, http.StatusUnprocessableEntity, "Check-in opens 60 minutes before the appointment", nil)
		case usecase.ErrCheckInTooLate:
			response.Error(w, http.StatusUnprocessableEntity, "Check-in closed 15 minutes after the appointment start", nil)
		case usecase.ErrQueueConflict:
			response.Conflict(w, "Could not assign a queue number, please try again")
		default:
			response.InternalServerError(w, "Failed to check in")
		}
		return
	}

	response.Success(w, http.StatusOK, "Checked in successfully", result)
}

// GetQueueBoard serves the waiting-room display for one doctor-day.
func (h *CheckInHandler) GetQueueBoard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := uuid.Parse(vars["doctorId"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor ID", nil)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		response.Error(w, http.StatusBadRequest, "Query parameter 'date' is required", nil)
		return
	}

	board, err := h.checkInUsecase.GetQueueBoard(r.Context(), doctorID, date)
	if err != nil {
		if err == usecase.ErrInvalidDate {
			response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
			return
		}
		response.InternalServerError(w, "Failed to get queue board")
		return
	}

	response.Success(w, http.StatusOK, "Queue board retrieved successfully", board)
}
