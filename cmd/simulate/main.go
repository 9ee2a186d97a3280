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
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/caarlos0/env/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/booking"
	"github.com/hackgods/appointment-booking/internal/config"
	"github.com/hackgods/appointment-booking/internal/db"
	"github.com/hackgods/appointment-booking/internal/logging"
)

type SimConfig struct {
	APIBaseURL     string        `env:"SIM_API_BASE_URL" envDefault:"http://localhost:8080"`
	Duration       time.Duration `env:"SIM_DURATION" envDefault:"30s"`
	Workers        int           `env:"SIM_WORKERS" envDefault:"10"`
	BookingRatio   float64       `env:"SIM_BOOKING_RATIO" envDefault:"0.5"`
	CancelRatio    float64       `env:"SIM_CANCEL_RATIO" envDefault:"0.1"`
	ReadRatio      float64       `env:"SIM_READ_RATIO" envDefault:"0.4"`
	ClientLimit    int           `env:"SIM_CLIENT_LIMIT" envDefault:"50"`
	SlotLimit      int           `env:"SIM_SLOT_LIMIT" envDefault:"200"`
	ClientPassword string        `env:"SEED_CLIENT_PASSWORD" envDefault:"client123"`
}

var bookingNotes = []string{
	"",
	"first visit",
	"running a few minutes late",
	"please call on arrival",
	"same as last time",
}

type slotRef struct {
	Date  string
	Start booking.TimeOfDay
	End   booking.TimeOfDay
}

// DataPool holds the logged-in clients and bookable targets shared by workers.
type DataPool struct {
	Tokens   []string
	Slots    []slotRef
	Services []booking.Service

	mu       sync.Mutex
	bookings map[string][]uuid.UUID // token -> reservation ids
}

func (dp *DataPool) AddBooking(token string, id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings[token] = append(dp.bookings[token], id)
}

func (dp *DataPool) TakeBooking(token string) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	ids := dp.bookings[token]
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	id := ids[len(ids)-1]
	dp.bookings[token] = ids[:len(ids)-1]
	return id, true
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
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
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
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	percentile := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}

	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], percentile(50), percentile(95)
}

type Metrics struct {
	Login        OperationMetrics
	Availability OperationMetrics
	Booking      OperationMetrics
	Cancel       OperationMetrics
	ListMine     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	logger  *zap.Logger
}

func main() {
	base, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	var cfg SimConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("simulator config error: %v", err)
	}
	if err := validateConfig(&cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(base.Env, "simulate")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("cancel", cfg.CancelRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, base.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.pool, err = sim.loadDataPool(ctx, pgPool, base.Location)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	logger.Info("data pool ready",
		zap.Int("clients", len(sim.pool.Tokens)),
		zap.Int("slots", len(sim.pool.Slots)),
		zap.Int("services", len(sim.pool.Services)),
	)

	sim.Run()
	sim.PrintReport()

	verifyCtx, cancelVerify := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelVerify()
	if err := verifyNoDoubleBooking(verifyCtx, pgPool); err != nil {
		logger.Fatal("double booking check failed", zap.Error(err))
	}
	logger.Info("no double booking detected")
}

func validateConfig(cfg *SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}

	total := cfg.BookingRatio + cfg.CancelRatio + cfg.ReadRatio
	if total <= 0 {
		return fmt.Errorf("operation ratios must add up to more than 0")
	}
	cfg.BookingRatio /= total
	cfg.CancelRatio /= total
	cfg.ReadRatio /= total
	return nil
}

// loadDataPool reads seeded clients, upcoming slots and active services from
// Postgres, then logs every client in over HTTP.
func (s *Simulator) loadDataPool(ctx context.Context, pool *pgxpool.Pool, loc *time.Location) (*DataPool, error) {
	dp := &DataPool{bookings: make(map[string][]uuid.UUID)}

	rows, err := pool.Query(ctx, `
		SELECT email FROM users WHERE role = 'client' ORDER BY created_at LIMIT $1
	`, s.config.ClientLimit)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			rows.Close()
			return nil, err
		}
		emails = append(emails, email)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	repo := booking.NewPgRepository(pool)
	tomorrow := booking.DateOf(time.Now().In(loc)).AddDate(0, 0, 1)
	slots, err := repo.ListSlots(ctx, &tomorrow, nil)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	for _, slot := range slots {
		if !slot.Active {
			continue
		}
		if len(dp.Slots) == s.config.SlotLimit {
			break
		}
		dp.Slots = append(dp.Slots, slotRef{Date: booking.FormatDate(slot.Date), Start: slot.Start, End: slot.End})
	}

	dp.Services, err = repo.ListServices(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.config.Workers)
	for _, email := range emails {
		wg.Add(1)
		sem <- struct{}{}
		go func(email string) {
			defer wg.Done()
			defer func() { <-sem }()
			if token, ok := s.login(ctx, email); ok {
				mu.Lock()
				dp.Tokens = append(dp.Tokens, token)
				mu.Unlock()
			}
		}(email)
	}
	wg.Wait()

	switch {
	case len(dp.Tokens) == 0:
		return nil, fmt.Errorf("no client could log in (run cmd/seed first)")
	case len(dp.Slots) == 0:
		return nil, fmt.Errorf("no upcoming slots")
	case len(dp.Services) == 0:
		return nil, fmt.Errorf("no active services")
	}
	return dp, nil
}

func (s *Simulator) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.client.Do(req)
}

func (s *Simulator) login(ctx context.Context, email string) (string, bool) {
	start := time.Now()
	resp, err := s.do(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": s.config.ClientPassword,
	})
	latency := time.Since(start)
	if err != nil {
		s.metrics.Login.Record(latency, false, false)
		return "", false
	}
	defer resp.Body.Close()

	var body struct {
		Token string `json:"token"`
	}
	ok := resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&body) == nil && body.Token != ""
	s.metrics.Login.Record(latency, ok, false)
	return body.Token, ok
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation", zap.Duration("duration", s.config.Duration), zap.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		token := s.pool.Tokens[rng.Intn(len(s.pool.Tokens))]
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng, token)
		case r < s.config.BookingRatio+s.config.CancelRatio:
			s.doCancel(ctx, token)
		case rng.Intn(2) == 0:
			s.doAvailability(ctx, rng)
		default:
			s.doListMine(ctx, token)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, token string) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	svc := s.pool.Services[rng.Intn(len(s.pool.Services))]

	end := slot.Start + booking.TimeOfDay(svc.DurationMinutes)
	if end > slot.End {
		end = slot.End
	}

	start := time.Now()
	resp, err := s.do(ctx, http.MethodPost, "/api/reservations", token, map[string]string{
		"serviceId": svc.ID.String(),
		"date":      slot.Date,
		"start":     slot.Start.String(),
		"end":       end.String(),
		"notes":     bookingNotes[gofakeit.Number(0, len(bookingNotes)-1)],
	})
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Booking.Record(latency, false, false)
		}
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var res struct {
			ID uuid.UUID `json:"id"`
		}
		if json.NewDecoder(resp.Body).Decode(&res) == nil && res.ID != uuid.Nil {
			s.pool.AddBooking(token, res.ID)
		}
		s.metrics.Booking.Record(latency, true, false)
	case http.StatusConflict:
		s.metrics.Booking.Record(latency, false, true)
	default:
		s.metrics.Booking.Record(latency, false, false)
	}
}

func (s *Simulator) doCancel(ctx context.Context, token string) {
	id, ok := s.pool.TakeBooking(token)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.do(ctx, http.MethodDelete, "/api/user/reservations/"+id.String(), token, nil)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Cancel.Record(latency, false, false)
		}
		return
	}
	defer resp.Body.Close()

	s.metrics.Cancel.Record(latency, resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusConflict)
}

func (s *Simulator) doAvailability(ctx context.Context, rng *rand.Rand) {
	slot := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	svc := s.pool.Services[rng.Intn(len(s.pool.Services))]

	start := time.Now()
	resp, err := s.do(ctx, http.MethodGet, fmt.Sprintf("/api/slots/%s?serviceId=%s", slot.Date, svc.ID), "", nil)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Availability.Record(latency, false, false)
		}
		return
	}
	defer resp.Body.Close()
	s.metrics.Availability.Record(latency, resp.StatusCode == http.StatusOK, false)
}

func (s *Simulator) doListMine(ctx context.Context, token string) {
	start := time.Now()
	resp, err := s.do(ctx, http.MethodGet, "/api/user/reservations", token, nil)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.ListMine.Record(latency, false, false)
		}
		return
	}
	defer resp.Body.Close()
	s.metrics.ListMine.Record(latency, resp.StatusCode == http.StatusOK, false)
}

// verifyNoDoubleBooking fails when two blocking reservations share a date
// and start time.
func verifyNoDoubleBooking(ctx context.Context, pool *pgxpool.Pool) error {
	var duplicates int
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT reservation_date, start_time
			FROM reservations
			WHERE status IN ('confirmed', 'completed')
			GROUP BY reservation_date, start_time
			HAVING count(*) > 1
		) d
	`).Scan(&duplicates)
	if err != nil {
		return fmt.Errorf("query duplicates: %w", err)
	}
	if duplicates > 0 {
		return fmt.Errorf("%d (date, start) pairs are booked more than once", duplicates)
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Clients: %d\n", len(s.pool.Tokens))
	fmt.Println()

	printOperationReport("Login", &s.metrics.Login)
	printOperationReport("Availability", &s.metrics.Availability)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("List my reservations", &s.metrics.ListMine)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
