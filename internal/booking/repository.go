package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound   = errors.New("client not found")
	ErrProviderNotFound = errors.New("provider not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrBookingNotFound  = errors.New("booking not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error)

	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ListBlockingBookings returns the provider's bookings that still occupy
	// their interval (status not cancelled/no_show) and end after from.
	ListBlockingBookings(ctx context.Context, providerID uuid.UUID, from time.Time) ([]Booking, error)

	// CountOverlapping counts blocking bookings for the provider whose
	// half-open interval intersects [start, end). Used for the commit-time
	// re-check inside the reservation lock.
	CountOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) (int, error)

	InsertBooking(ctx context.Context, b *Booking) (*Booking, error)

	// UpdateBookingStatus is a compare-and-swap: the row is updated only if
	// its status still equals from, otherwise ErrBookingNotFound.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error)

	// DeleteScheduledBooking removes a booking only while it is still in the
	// initial scheduled state and belongs to clientID. Legacy path.
	DeleteScheduledBooking(ctx context.Context, id, clientID uuid.UUID) error

	ListBookingsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Booking, error)
}
