package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dfarias/barber-agenda/internal/schedule"
)

// fakeRepo is an in-memory Repository. It deliberately does nothing to
// prevent races on its own beyond a data mutex, so the concurrency tests
// exercise the locker the same way the Postgres repository would.
type fakeRepo struct {
	mu        sync.Mutex
	clients   map[uuid.UUID]*Client
	providers map[uuid.UUID]*Provider
	services  map[uuid.UUID]*Service
	bookings  map[uuid.UUID]*Booking
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clients:   make(map[uuid.UUID]*Client),
		providers: make(map[uuid.UUID]*Provider),
		services:  make(map[uuid.UUID]*Service),
		bookings:  make(map[uuid.UUID]*Booking),
	}
}

func (r *fakeRepo) GetClientByID(_ context.Context, id uuid.UUID) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	return nil, ErrClientNotFound
}

func (r *fakeRepo) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[id]; ok {
		return p, nil
	}
	return nil, ErrProviderNotFound
}

func (r *fakeRepo) GetServiceByID(_ context.Context, id uuid.UUID) (*Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.services[id]; ok {
		return s, nil
	}
	return nil, ErrServiceNotFound
}

func (r *fakeRepo) GetBookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, ErrBookingNotFound
}

func (r *fakeRepo) ListBlockingBookings(_ context.Context, providerID uuid.UUID, from time.Time) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.ProviderID != providerID || !b.Status.Blocking() {
			continue
		}
		if schedule.NewInterval(b.Start, b.DurationMinutes).End().After(from) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountOverlapping(_ context.Context, providerID uuid.UUID, start, end time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.bookings {
		if b.ProviderID != providerID || !b.Status.Blocking() {
			continue
		}
		if b.Start.Before(end) && schedule.NewInterval(b.Start, b.DurationMinutes).End().After(start) {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) InsertBooking(_ context.Context, b *Booking) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cp := *b
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.bookings[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) UpdateBookingStatus(_ context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) DeleteScheduledBooking(_ context.Context, id, clientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.ClientID != clientID || b.Status != StatusScheduled {
		return ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *fakeRepo) ListBookingsByClient(_ context.Context, clientID uuid.UUID, limit, offset int) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.ClientID == clientID {
			out = append(out, *b)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mutexLocker serializes critical sections per provider in-process, standing
// in for the Redis locker.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *mutexLocker) WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[providerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[providerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type fixture struct {
	repo      *fakeRepo
	scheduler *Scheduler
	clientID  uuid.UUID
	provider  uuid.UUID
	service   uuid.UUID
	now       time.Time
}

// newFixture wires a scheduler over one client, one barber, and one active
// 60-minute service, with "now" pinned to Tuesday 1 Sep 2026 07:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	clientID := uuid.New()
	providerID := uuid.New()
	serviceID := uuid.New()

	repo.clients[clientID] = &Client{ID: clientID, Name: "Rui"}
	repo.providers[providerID] = &Provider{ID: providerID, Name: "Marcos"}
	repo.services[serviceID] = &Service{
		ID:              serviceID,
		ProviderID:      providerID,
		Name:            "Haircut",
		DurationMinutes: 60,
		Active:          true,
	}

	now := time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)

	s := NewScheduler(repo, newMutexLocker())
	s.now = func() time.Time { return now }

	return &fixture{
		repo:      repo,
		scheduler: s,
		clientID:  clientID,
		provider:  providerID,
		service:   serviceID,
		now:       now,
	}
}

func (f *fixture) slot(h, m int) time.Time {
	return time.Date(2026, 9, 1, h, m, 0, 0, time.UTC)
}

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture(t)

	b, err := f.scheduler.CreateBooking(context.Background(), CreateInput{
		ClientID:   f.clientID,
		ProviderID: f.provider,
		ServiceID:  f.service,
		Start:      f.slot(10, 0),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", b.Status)
	}
	if b.DurationMinutes != 60 {
		t.Errorf("duration = %d, want 60", b.DurationMinutes)
	}
}

func TestCreateBooking_PreconditionFailures(t *testing.T) {
	f := newFixture(t)

	inactiveID := uuid.New()
	f.repo.services[inactiveID] = &Service{
		ID:         inactiveID,
		ProviderID: f.provider,
		Name:       "Retired cut",
		Active:     false,
	}

	otherProviderSvc := uuid.New()
	f.repo.services[otherProviderSvc] = &Service{
		ID:         otherProviderSvc,
		ProviderID: uuid.New(),
		Name:       "Someone else's cut",
		Active:     true,
	}

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{
			"unknown client",
			CreateInput{ClientID: uuid.New(), ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0)},
			ErrClientNotFound,
		},
		{
			"unknown provider",
			CreateInput{ClientID: f.clientID, ProviderID: uuid.New(), ServiceID: f.service, Start: f.slot(10, 0)},
			ErrProviderNotFound,
		},
		{
			"unknown service",
			CreateInput{ClientID: f.clientID, ProviderID: f.provider, ServiceID: uuid.New(), Start: f.slot(10, 0)},
			ErrServiceNotFound,
		},
		{
			"service of another provider",
			CreateInput{ClientID: f.clientID, ProviderID: f.provider, ServiceID: otherProviderSvc, Start: f.slot(10, 0)},
			ErrServiceNotFound,
		},
		{
			"inactive service",
			CreateInput{ClientID: f.clientID, ProviderID: f.provider, ServiceID: inactiveID, Start: f.slot(10, 0)},
			ErrServiceInactive,
		},
		{
			"start in the past",
			CreateInput{ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.now.Add(-time.Hour)},
			ErrStartInPast,
		},
		{
			"start exactly now",
			CreateInput{ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.now},
			ErrStartInPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.scheduler.CreateBooking(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(f.repo.bookings) != 0 {
		t.Errorf("failed creates left %d rows behind", len(f.repo.bookings))
	}
}

func TestCreateBooking_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0),
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	overlapping := []time.Time{
		f.slot(10, 0),  // identical
		f.slot(9, 30),  // ends 10:30
		f.slot(10, 30), // starts inside
	}
	for _, start := range overlapping {
		_, err := f.scheduler.CreateBooking(ctx, CreateInput{
			ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: start,
		})
		if !errors.Is(err, ErrSlotTaken) {
			t.Errorf("start %s: err = %v, want ErrSlotTaken", start, err)
		}
	}
}

func TestCreateBooking_BackToBackAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	starts := []time.Time{f.slot(10, 0), f.slot(11, 0), f.slot(9, 0)}
	for _, start := range starts {
		if _, err := f.scheduler.CreateBooking(ctx, CreateInput{
			ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: start,
		}); err != nil {
			t.Fatalf("back-to-back booking at %s failed: %v", start, err)
		}
	}
}

func TestCreateBooking_OtherProviderUnaffected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherProvider := uuid.New()
	otherService := uuid.New()
	f.repo.providers[otherProvider] = &Provider{ID: otherProvider, Name: "Leo"}
	f.repo.services[otherService] = &Service{
		ID: otherService, ProviderID: otherProvider, Name: "Haircut", DurationMinutes: 60, Active: true,
	}

	if _, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0),
	}); err != nil {
		t.Fatalf("first provider: %v", err)
	}

	if _, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: otherProvider, ServiceID: otherService, Start: f.slot(10, 0),
	}); err != nil {
		t.Fatalf("same interval on another provider must not conflict: %v", err)
	}
}

func TestCreateBooking_DurationFallback(t *testing.T) {
	f := newFixture(t)

	noDuration := uuid.New()
	f.repo.services[noDuration] = &Service{
		ID: noDuration, ProviderID: f.provider, Name: "Walk-in", DurationMinutes: 0, Active: true,
	}

	b, err := f.scheduler.CreateBooking(context.Background(), CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: noDuration, Start: f.slot(10, 0),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.DurationMinutes != schedule.DefaultDurationMinutes {
		t.Errorf("duration = %d, want %d", b.DurationMinutes, schedule.DefaultDurationMinutes)
	}
}

func TestCreateBooking_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	start := f.slot(10, 0)

	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.scheduler.CreateBooking(ctx, CreateInput{
				ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: start,
			})
			errs[i] = err
		}(i)
	}
	wg.Wait()

	created := 0
	conflicts := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
	if conflicts != attempts-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, attempts-1)
	}
}

func TestAvailableSlots_ExcludesBookedIntervals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0),
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	avail, err := f.scheduler.AvailableSlots(ctx, f.provider, f.service, 1)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if avail.DurationMinutes != 60 {
		t.Errorf("duration = %d, want 60", avail.DurationMinutes)
	}

	// 20 raw candidates on a Tuesday; the 60-minute booking at 10:00 knocks
	// out 09:30, 10:00 and 10:30.
	if len(avail.Slots) != 17 {
		t.Errorf("len(slots) = %d, want 17", len(avail.Slots))
	}
	for _, s := range avail.Slots {
		iv := schedule.NewInterval(s, 60)
		booked := schedule.NewInterval(f.slot(10, 0), 60)
		if iv.Overlaps(booked) {
			t.Errorf("slot %s overlaps the existing booking", s)
		}
	}
}

func TestAvailableSlots_UnknownEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.scheduler.AvailableSlots(ctx, uuid.New(), f.service, 1); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("unknown provider: err = %v, want ErrProviderNotFound", err)
	}
	if _, err := f.scheduler.AvailableSlots(ctx, f.provider, uuid.New(), 1); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("unknown service: err = %v, want ErrServiceNotFound", err)
	}
}

func TestTransitionStatus_AllowList(t *testing.T) {
	all := []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow}
	allowed := map[Status][]Status{
		StatusScheduled:  {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusNoShow},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}

			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				f := newFixture(t)
				id := uuid.New()
				f.repo.bookings[id] = &Booking{
					ID: id, ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service,
					Start: f.slot(10, 0), DurationMinutes: 60, Status: from,
				}

				b, err := f.scheduler.TransitionStatus(context.Background(), id, to)
				if want {
					if err != nil {
						t.Fatalf("allowed transition failed: %v", err)
					}
					if b.Status != to {
						t.Errorf("status = %s, want %s", b.Status, to)
					}
					return
				}

				var transition *InvalidTransitionError
				if !errors.As(err, &transition) {
					t.Fatalf("err = %v, want InvalidTransitionError", err)
				}
				if transition.From != from || transition.To != to {
					t.Errorf("transition error = %s->%s, want %s->%s", transition.From, transition.To, from, to)
				}
			})
		}
	}
}

func TestTransitionStatus_UnknownBookingAndStatus(t *testing.T) {
	f := newFixture(t)

	if _, err := f.scheduler.TransitionStatus(context.Background(), uuid.New(), StatusConfirmed); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("unknown booking: err = %v, want ErrBookingNotFound", err)
	}

	id := uuid.New()
	f.repo.bookings[id] = &Booking{
		ID: id, ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service,
		Start: f.slot(10, 0), DurationMinutes: 60, Status: StatusScheduled,
	}

	var transition *InvalidTransitionError
	if _, err := f.scheduler.TransitionStatus(context.Background(), id, Status("banana")); !errors.As(err, &transition) {
		t.Errorf("bogus status: err = %v, want InvalidTransitionError", err)
	}
}

func TestCancelBooking_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if _, err := f.scheduler.CancelBooking(ctx, b.ID, uuid.New()); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("foreign client cancel: err = %v, want ErrBookingNotFound", err)
	}

	cancelled, err := f.scheduler.CancelBooking(ctx, b.ID, f.clientID)
	if err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
}

func TestCancelledSlotBecomesAvailableAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := f.scheduler.CancelBooking(ctx, b.ID, f.clientID); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}

	if _, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0),
	}); err != nil {
		t.Fatalf("rebooking a cancelled slot must succeed: %v", err)
	}
}

func TestDeleteScheduledBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(10, 0),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if err := f.scheduler.DeleteScheduledBooking(ctx, b.ID, uuid.New()); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("foreign client delete: err = %v, want ErrBookingNotFound", err)
	}

	if err := f.scheduler.DeleteScheduledBooking(ctx, b.ID, f.clientID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.scheduler.GetBooking(ctx, b.ID); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("booking still present after delete")
	}

	// Once confirmed, the legacy delete path is closed.
	b2, err := f.scheduler.CreateBooking(ctx, CreateInput{
		ClientID: f.clientID, ProviderID: f.provider, ServiceID: f.service, Start: f.slot(14, 0),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if _, err := f.scheduler.TransitionStatus(ctx, b2.ID, StatusConfirmed); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if err := f.scheduler.DeleteScheduledBooking(ctx, b2.ID, f.clientID); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("confirmed booking delete: err = %v, want ErrBookingNotFound", err)
	}
}
