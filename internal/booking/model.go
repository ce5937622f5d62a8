package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// allowedTransitions is the full status machine. Anything not listed here
// is rejected; completed, cancelled and no_show are terminal.
var allowedTransitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusNoShow},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether the status machine permits s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Blocking reports whether a booking in this status still occupies its
// interval on the provider's calendar.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Client struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Service struct {
	ID              uuid.UUID
	ProviderID      uuid.UUID
	Name            string
	DurationMinutes int
	PriceCents      int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Booking struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	ProviderID      uuid.UUID
	ServiceID       uuid.UUID
	Start           time.Time
	DurationMinutes int
	Status          Status
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
