package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/dfarias/barber-agenda/internal/redis"
	"github.com/dfarias/barber-agenda/internal/schedule"
)

// Scheduler is the application service around the provider calendars:
// availability queries and the booking reservation protocol.
type Scheduler struct {
	repo   Repository
	locker redisclient.Locker
	now    func() time.Time
}

func NewScheduler(repo Repository, locker redisclient.Locker) *Scheduler {
	return &Scheduler{
		repo:   repo,
		locker: locker,
		now:    time.Now,
	}
}

// Availability is the answer to "when can I get a haircut": the open slot
// starts plus the duration the chosen service will occupy.
type Availability struct {
	ProviderID      uuid.UUID
	ServiceID       uuid.UUID
	DurationMinutes int
	Slots           []time.Time
}

type CreateInput struct {
	ClientID   uuid.UUID
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
	Start      time.Time
	Notes      *string
}

// resolveService loads the service, checks it belongs to the provider and
// is still offered, and returns it along with its effective duration.
func (s *Scheduler) resolveService(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, int, error) {
	svc, err := s.repo.GetServiceByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("load service: %w", err)
	}
	if svc.ProviderID != providerID {
		return nil, 0, ErrServiceNotFound
	}
	if !svc.Active {
		return nil, 0, ErrServiceInactive
	}

	dur := svc.DurationMinutes
	if dur <= 0 {
		dur = schedule.DefaultDurationMinutes
	}
	return svc, dur, nil
}

// AvailableSlots generates the provider's open slot starts for the given
// service over the next horizonDays days. The result is a snapshot: a slot
// can be taken between the time it is shown and the time it is booked, and
// CreateBooking re-checks under the provider lock.
func (s *Scheduler) AvailableSlots(ctx context.Context, providerID, serviceID uuid.UUID, horizonDays int) (*Availability, error) {
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	_, dur, err := s.resolveService(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	candidates := schedule.CandidateStarts(now, horizonDays)

	active, err := s.repo.ListBlockingBookings(ctx, providerID, now)
	if err != nil {
		return nil, fmt.Errorf("list provider bookings: %w", err)
	}

	busy := make([]schedule.Interval, 0, len(active))
	for _, b := range active {
		busy = append(busy, schedule.NewInterval(b.Start, b.DurationMinutes))
	}

	return &Availability{
		ProviderID:      providerID,
		ServiceID:       serviceID,
		DurationMinutes: dur,
		Slots:           schedule.FilterAvailable(candidates, dur, busy),
	}, nil
}

// CreateBooking reserves a slot for a client. Entity checks run first, then
// the overlap re-check and insert execute under a per-provider distributed
// lock so two concurrent requests for overlapping intervals cannot both
// commit.
func (s *Scheduler) CreateBooking(ctx context.Context, in CreateInput) (*Booking, error) {
	if _, err := s.repo.GetClientByID(ctx, in.ClientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	if _, err := s.repo.GetProviderByID(ctx, in.ProviderID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	_, dur, err := s.resolveService(ctx, in.ProviderID, in.ServiceID)
	if err != nil {
		return nil, err
	}

	if !in.Start.After(s.now()) {
		return nil, ErrStartInPast
	}

	end := in.Start.Add(time.Duration(dur) * time.Minute)

	var created *Booking

	err = s.locker.WithProviderLock(ctx, in.ProviderID, func(lockCtx context.Context) error {
		// Inside the critical section re-check the live booking table; the
		// availability list the client saw may be stale.
		n, err := s.repo.CountOverlapping(lockCtx, in.ProviderID, in.Start, end)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if n > 0 {
			return ErrSlotTaken
		}

		b := &Booking{
			ID:              uuid.New(),
			ClientID:        in.ClientID,
			ProviderID:      in.ProviderID,
			ServiceID:       in.ServiceID,
			Start:           in.Start,
			DurationMinutes: dur,
			Status:          StatusScheduled,
			Notes:           in.Notes,
		}

		created, err = s.repo.InsertBooking(lockCtx, b)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrCalendarBusy
		}
		return nil, err
	}

	return created, nil
}

// TransitionStatus moves a booking through the status machine. Only pairs
// in the allow-list are permitted; the update itself is a compare-and-swap
// so a concurrent transition loses cleanly instead of overwriting.
func (s *Scheduler) TransitionStatus(ctx context.Context, id uuid.UUID, target Status) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}

	if !target.Valid() || !b.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: b.Status, To: target}
	}

	updated, err := s.repo.UpdateBookingStatus(ctx, id, b.Status, target)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	return updated, nil
}

// CancelBooking cancels a booking on behalf of the client who owns it. A
// booking belonging to someone else is reported as not found rather than
// forbidden.
func (s *Scheduler) CancelBooking(ctx context.Context, id, clientID uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if b.ClientID != clientID {
		return nil, ErrBookingNotFound
	}

	return s.TransitionStatus(ctx, id, StatusCancelled)
}

// DeleteScheduledBooking is the legacy hard-delete path: allowed only while
// the booking is still scheduled and only for the owning client.
func (s *Scheduler) DeleteScheduledBooking(ctx context.Context, id, clientID uuid.UUID) error {
	if err := s.repo.DeleteScheduledBooking(ctx, id, clientID); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return err
		}
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}

func (s *Scheduler) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (s *Scheduler) ListBookingsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Booking, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	out, err := s.repo.ListBookingsByClient(ctx, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list bookings by client: %w", err)
	}
	return out, nil
}
