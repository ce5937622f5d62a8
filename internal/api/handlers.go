package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dfarias/barber-agenda/internal/booking"
	redisclient "github.com/dfarias/barber-agenda/internal/redis"
)

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		ClientID:        b.ClientID,
		ProviderID:      b.ProviderID,
		ServiceID:       b.ServiceID,
		StartTime:       b.Start,
		EndTime:         b.Start.Add(time.Duration(b.DurationMinutes) * time.Minute),
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func availableSlotsHandler(svc *booking.Scheduler, defaultHorizonDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "providerID must be a valid UUID")
			return
		}

		serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		days := defaultHorizonDays
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
				return
			}
			days = n
		}

		avail, err := svc.AvailableSlots(r.Context(), providerID, serviceID, days)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		slots := avail.Slots
		if slots == nil {
			slots = []time.Time{}
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			ProviderID:      avail.ProviderID,
			ServiceID:       avail.ServiceID,
			DurationMinutes: avail.DurationMinutes,
			Slots:           slots,
		})
	}
}

func createBookingHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be RFC 3339")
			return
		}

		b, err := svc.CreateBooking(r.Context(), booking.CreateInput{
			ClientID:   clientID,
			ProviderID: providerID,
			ServiceID:  serviceID,
			Start:      start,
			Notes:      req.Notes,
		})
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func listClientBookingsHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "clientID must be a valid UUID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		items, err := svc.ListBookingsByClient(r.Context(), clientID, limit, offset)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		resp := make([]BookingResponse, 0, len(items))
		for i := range items {
			resp = append(resp, toBookingResponse(&items[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func transitionBookingHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.TransitionStatus(r.Context(), id, booking.Status(req.Status))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		b, err := svc.CancelBooking(r.Context(), id, clientID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

// deleteBookingHandler is the legacy hard-delete path kept for clients that
// created a booking and back out before the shop confirms it.
func deleteBookingHandler(svc *booking.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		clientID, err := uuid.Parse(r.URL.Query().Get("client_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		if err := svc.DeleteScheduledBooking(r.Context(), id, clientID); err != nil {
			handleSchedulingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSchedulingError(w http.ResponseWriter, err error) {
	var transition *booking.InvalidTransitionError

	switch {
	case errors.Is(err, booking.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", err.Error())
	case errors.Is(err, booking.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrServiceInactive):
		writeError(w, http.StatusConflict, "service_inactive", err.Error())
	case errors.Is(err, booking.ErrStartInPast):
		writeError(w, http.StatusBadRequest, "start_in_past", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrCalendarBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "calendar_busy", "provider calendar is being booked, please retry shortly")
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
