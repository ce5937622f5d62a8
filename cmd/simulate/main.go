package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dfarias/barber-agenda/internal/config"
	"github.com/dfarias/barber-agenda/internal/db"
)

// The simulator exists to pressure-test one property: no matter how many
// workers fight over the same barbers' calendars, the bookings table must
// end up with zero overlapping active intervals. It hammers the API and
// then verifies the invariant directly in Postgres.

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	ConfirmRatio  float64
	ReadRatio     float64
	ClientLimit   int
	ProviderLimit int
	PostgresDSN   string
}

type providerService struct {
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
}

type DataPool struct {
	Clients  []uuid.UUID
	Pairs    []providerService
	mu       sync.RWMutex
	bookings []uuid.UUID
}

func (dp *DataPool) AddBooking(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, id)
}

func (dp *DataPool) GetRandomBooking() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return uuid.Nil, false
	}
	idx := rand.Intn(len(dp.bookings))
	return dp.bookings[idx], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking      OperationMetrics
	Confirm      OperationMetrics
	Availability OperationMetrics
	ReadByID     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f confirm=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.ConfirmRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d clients, %d provider/service pairs", len(dataPool.Clients), len(dataPool.Pairs))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()

	verifyCtx, verifyCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer verifyCancel()
	if err := verifyNoOverlaps(verifyCtx, pgPool); err != nil {
		log.Fatalf("INVARIANT VIOLATED: %v", err)
	}
	log.Println("invariant holds: no overlapping active bookings per provider")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio:  getFloat("SIM_CONFIRM_RATIO", 0.2),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.3),
		ClientLimit:   getInt("SIM_CLIENT_LIMIT", 2000),
		ProviderLimit: getInt("SIM_PROVIDER_LIMIT", 5),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id FROM clients LIMIT $1
	`, cfg.ClientLimit)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Clients = append(dataPool.Clients, id)
	}

	// Keep the provider pool small on purpose: contention on the same
	// calendars is the whole point of the exercise.
	rows, err = pool.Query(ctx, `
		SELECT s.provider_id, s.id
		FROM services s
		WHERE s.active
		  AND s.provider_id IN (SELECT id FROM providers LIMIT $1)
	`, cfg.ProviderLimit)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p providerService
		if err := rows.Scan(&p.ProviderID, &p.ServiceID); err != nil {
			return nil, err
		}
		dataPool.Pairs = append(dataPool.Pairs, p)
	}

	if len(dataPool.Clients) == 0 {
		return nil, fmt.Errorf("no clients loaded")
	}
	if len(dataPool.Pairs) == 0 {
		return nil, fmt.Errorf("no active services loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			if r < s.config.BookingRatio {
				s.doBooking(ctx, rng)
			} else if r < s.config.BookingRatio+s.config.ConfirmRatio {
				s.doConfirm(ctx, rng)
			} else {
				if rng.Intn(2) == 0 {
					s.doAvailability(ctx, rng)
				} else {
					s.doReadByID(ctx, rng)
				}
			}
		}
	}
}

// doBooking asks for availability and immediately tries to take one of the
// first few slots. Because every worker favors the earliest openings of a
// handful of providers, conflicts are the expected outcome.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	pair := s.pool.Pairs[rng.Intn(len(s.pool.Pairs))]
	clientID := s.pool.Clients[rng.Intn(len(s.pool.Clients))]

	slots, ok := s.fetchSlots(ctx, pair)
	if !ok || len(slots) == 0 {
		return
	}

	pick := rng.Intn(len(slots))
	if pick > 4 {
		pick = rng.Intn(5)
	}

	start := time.Now()

	reqBody := map[string]string{
		"client_id":   clientID.String(),
		"provider_id": pair.ProviderID.String(),
		"service_id":  pair.ServiceID.String(),
		"start_time":  slots[pick].Format(time.RFC3339),
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			success = true
			var bookingResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				json.Unmarshal(bodyBytes, &bookingResp)
				if bookingResp.ID != uuid.Nil {
					s.pool.AddBooking(bookingResp.ID)
				}
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) fetchSlots(ctx context.Context, pair providerService) ([]time.Time, bool) {
	start := time.Now()

	url := fmt.Sprintf("%s/providers/%s/slots?service_id=%s&days=3",
		s.config.APIBaseURL, pair.ProviderID.String(), pair.ServiceID.String())
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		s.metrics.Availability.Record(latency, false, false)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.metrics.Availability.Record(latency, false, false)
		return nil, false
	}

	var availResp struct {
		Slots []time.Time `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&availResp); err != nil {
		s.metrics.Availability.Record(latency, false, false)
		return nil, false
	}

	s.metrics.Availability.Record(latency, true, false)
	return availResp.Slots, true
}

func (s *Simulator) doAvailability(ctx context.Context, rng *rand.Rand) {
	pair := s.pool.Pairs[rng.Intn(len(s.pool.Pairs))]
	s.fetchSlots(ctx, pair)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	bookingID, ok := s.pool.GetRandomBooking()
	if !ok {
		return
	}

	start := time.Now()

	body, _ := json.Marshal(map[string]string{"status": "confirmed"})
	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/bookings/%s/status", s.config.APIBaseURL, bookingID.String()), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			success = true
		} else if resp.StatusCode == http.StatusConflict {
			// Re-confirming an already confirmed booking; expected noise.
			conflict = true
		}
	}

	s.metrics.Confirm.Record(latency, success, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	bookingID, ok := s.pool.GetRandomBooking()
	if !ok {
		return
	}

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/bookings/%s", s.config.APIBaseURL, bookingID.String()), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ReadByID.Record(latency, success, false)
}

// verifyNoOverlaps self-joins the bookings table looking for two active
// bookings of the same provider whose half-open intervals intersect.
func verifyNoOverlaps(ctx context.Context, pool *pgxpool.Pool) error {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings a
		JOIN bookings b
		  ON a.provider_id = b.provider_id
		 AND a.id < b.id
		WHERE a.status NOT IN ('cancelled', 'no_show')
		  AND b.status NOT IN ('cancelled', 'no_show')
		  AND a.start_time < b.start_time + (b.duration_minutes * interval '1 minute')
		  AND a.start_time + (a.duration_minutes * interval '1 minute') > b.start_time
	`).Scan(&n)
	if err != nil {
		return fmt.Errorf("overlap query: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%d overlapping booking pairs found", n)
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
