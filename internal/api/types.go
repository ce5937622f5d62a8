package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	ClientID   string  `json:"client_id"`
	ProviderID string  `json:"provider_id"`
	ServiceID  string  `json:"service_id"`
	StartTime  string  `json:"start_time"` // RFC 3339
	Notes      *string `json:"notes,omitempty"`
}

type BookingResponse struct {
	ID              uuid.UUID `json:"id"`
	ClientID        uuid.UUID `json:"client_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	ServiceID       uuid.UUID `json:"service_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AvailabilityResponse struct {
	ProviderID      uuid.UUID   `json:"provider_id"`
	ServiceID       uuid.UUID   `json:"service_id"`
	DurationMinutes int         `json:"duration_minutes"`
	Slots           []time.Time `json:"slots"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type CancelRequest struct {
	ClientID string `json:"client_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
