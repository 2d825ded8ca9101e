package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"roomly/internal/database"
	"roomly/internal/models"

	"github.com/go-playground/validator/v10"
)

type createBookingRequest struct {
	RoomID              int64    `json:"room_id" validate:"required,gt=0"`
	UserEmail           string   `json:"user_email" validate:"required,email"`
	Title               string   `json:"title" validate:"required,max=200"`
	Description         string   `json:"description" validate:"max=2000"`
	Start               string   `json:"start" validate:"required"`
	End                 string   `json:"end" validate:"required"`
	Participants        []string `json:"participants" validate:"dive,email"`
	RemindMe            bool     `json:"remind_me"`
	ReminderLeadMinutes int      `json:"reminder_lead_minutes" validate:"gte=0,lte=1440"`
}

type updateBookingRequest struct {
	RoomID              int64    `json:"room_id" validate:"required,gt=0"`
	Title               string   `json:"title" validate:"required,max=200"`
	Description         string   `json:"description" validate:"max=2000"`
	Start               string   `json:"start" validate:"required"`
	End                 string   `json:"end" validate:"required"`
	Participants        []string `json:"participants" validate:"dive,email"`
	RemindMe            bool     `json:"remind_me"`
	ReminderLeadMinutes int      `json:"reminder_lead_minutes" validate:"gte=0,lte=1440"`
	Version             int64    `json:"version" validate:"required,gt=0"`
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createBookingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	start, end, ok := parseBookingTimes(w, req.Start, req.End)
	if !ok {
		return
	}

	booking := &models.Booking{
		RoomID:              req.RoomID,
		UserEmail:           req.UserEmail,
		Title:               req.Title,
		Description:         req.Description,
		Start:               start,
		End:                 end,
		Participants:        req.Participants,
		RemindMe:            req.RemindMe,
		ReminderLeadMinutes: req.ReminderLeadMinutes,
	}

	if err := s.bookings.CreateBooking(r.Context(), booking); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (s *Server) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/bookings/"
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBooking(w, r, id)
	case http.MethodPut, http.MethodPatch:
		s.updateBooking(w, r, id)
	case http.MethodDelete:
		s.cancelBooking(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request, id string) {
	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) updateBooking(w http.ResponseWriter, r *http.Request, id string) {
	var req updateBookingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	start, end, ok := parseBookingTimes(w, req.Start, req.End)
	if !ok {
		return
	}

	current, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	current.RoomID = req.RoomID
	current.Title = req.Title
	current.Description = req.Description
	current.Start = start
	current.End = end
	current.Participants = req.Participants
	current.RemindMe = req.RemindMe
	current.ReminderLeadMinutes = req.ReminderLeadMinutes

	if err := s.bookings.EditBooking(r.Context(), current, req.Version); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, current)
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.bookings.CancelBooking(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusCancelled})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, end, ok := parseBookingTimes(w, r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if !ok {
		return
	}

	availability, err := s.bookings.GetAvailability(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": availability})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "validation failed on field "+verrs[0].Field())
			return false
		}
		writeError(w, http.StatusBadRequest, "validation failed")
		return false
	}
	return true
}

func parseBookingTimes(w http.ResponseWriter, rawStart, rawEnd string) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(rawStart))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start time; expected RFC 3339")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(rawEnd))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end time; expected RFC 3339")
		return time.Time{}, time.Time{}, false
	}
	return start.UTC(), end.UTC(), true
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrConflict),
		errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInvalidInterval),
		errors.Is(err, database.ErrPastStart),
		errors.Is(err, database.ErrTooFarAhead),
		errors.Is(err, database.ErrRoomInactive):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
