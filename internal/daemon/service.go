// Package daemon provides the long-running re-planning service: it polls the
// rate source, re-solves the plan when the sheet changes and serves the
// latest plan over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/rates"
)

// Planner supplies the service with plans. Key identifies the inputs of the
// next solve; the service only calls Solve when the key changes.
type Planner interface {
	Key(ctx context.Context) (string, error)
	Solve(ctx context.Context) (*pipeline.Result, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Logger       logrus.FieldLogger
}

// Snapshot is the headline of the latest plan.
type Snapshot struct {
	At             time.Time `json:"at"`
	Start          string    `json:"start"`
	End            string    `json:"end"`
	RatesDate      string    `json:"rates_date"`
	RatesKey       string    `json:"rates_key"`
	Status         string    `json:"status"`
	FinalCash      float64   `json:"final_cash"`
	Interest       float64   `json:"interest"`
	Deposits       int       `json:"deposits"`
	LargestDeposit float64   `json:"largest_deposit"`
	SolveMillis    int64     `json:"solve_ms"`
}

// Delta captures how a re-solve moved the plan.
type Delta struct {
	FinalCash     float64 `json:"final_cash"`
	Interest      float64 `json:"interest"`
	Deposits      int     `json:"deposits"`
	StatusChanged bool    `json:"status_changed"`
}

func (d Delta) isZero() bool {
	return d.FinalCash == 0 && d.Interest == 0 && d.Deposits == 0 && !d.StatusChanged
}

// Event is emitted whenever a solve produces a different plan.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	SolveCount      int64     `json:"solve_count"`
	Plan            Snapshot  `json:"plan"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// PositionView is one row of /v1/plan.
type PositionView struct {
	Kind     string  `json:"kind"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Days     int     `json:"days"`
	Amount   float64 `json:"amount"`
	Factor   float64 `json:"factor"`
	Interest float64 `json:"interest"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	planner Planner
	log     logrus.FieldLogger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	solveCount  int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	positions   []PositionView
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, planner Planner) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = time.Hour
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Service{
		cfg:       cfg,
		planner:   planner,
		log:       log,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/plan", s.handlePlan)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.WithFields(logrus.Fields{"addr": s.cfg.Addr, "interval": s.cfg.Interval.String()}).Info("daemon listening")

	// Seed the first plan so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.mu.Unlock()
	s.log.WithError(err).Warn("daemon poll failed")
}

func (s *Service) pollOnce(ctx context.Context) {
	key, err := s.planner.Key(ctx)
	if err != nil {
		s.recordError(fmt.Errorf("checking rates: %w", err))
		return
	}

	s.mu.Lock()
	unchanged := s.hasSnapshot && s.lastError == "" && s.snapshot.RatesKey == key
	if unchanged {
		s.lastPollAt = time.Now()
		s.pollCount++
	}
	s.mu.Unlock()
	if unchanged {
		return
	}

	res, err := s.planner.Solve(ctx)
	if err != nil {
		s.recordError(fmt.Errorf("solving: %w", err))
		return
	}

	now := time.Now()
	snap := snapshotFromResult(res, key, now)
	s.log.WithFields(logrus.Fields{"status": snap.Status, "final_cash": snap.FinalCash, "deposits": snap.Deposits}).Info("plan solved")

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.positions = positionViews(res.Positions)
	s.lastPollAt = now
	s.pollCount++
	s.solveCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "plan", Timestamp: now, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "plan_delta", Timestamp: now, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func snapshotFromResult(res *pipeline.Result, key string, at time.Time) Snapshot {
	sum := res.Summary
	return Snapshot{
		At:             at,
		Start:          sum.Start.String(),
		End:            sum.End.String(),
		RatesDate:      sum.RatesDate.String(),
		RatesKey:       key,
		Status:         sum.Status,
		FinalCash:      sum.Objective,
		Interest:       sum.TotalInterest,
		Deposits:       sum.Investments,
		LargestDeposit: sum.LargestDeposit,
		SolveMillis:    sum.SolveDuration.Milliseconds(),
	}
}

func positionViews(positions []model.Position) []PositionView {
	out := make([]PositionView, len(positions))
	for i, p := range positions {
		out[i] = PositionView{
			Kind:     string(p.Kind),
			From:     p.From.String(),
			To:       p.To.String(),
			Days:     p.Days,
			Amount:   p.Amount,
			Factor:   p.Factor,
			Interest: p.Interest,
		}
	}
	return out
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		FinalCash:     curr.FinalCash - prev.FinalCash,
		Interest:      curr.Interest - prev.Interest,
		Deposits:      curr.Deposits - prev.Deposits,
		StatusChanged: curr.Status != prev.Status,
	}
}

// SheetKey identifies the buckets of the sheet effective on date, so a
// re-import of the same rates does not trigger a re-solve.
func SheetKey(tbl *rates.Table, date civil.Date) string {
	if !tbl.HasSheet(date) {
		return "none"
	}
	eff := date
	var lines []string
	for _, b := range tbl.Buckets() {
		if b.Effective == eff {
			lines = append(lines, fmt.Sprintf("%d-%d:%g", b.MinDays, b.MaxDays, b.Rate))
		}
	}
	sort.Strings(lines)
	data := eff.String() + "|" + strings.Join(lines, ",")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(data)).String()
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		SolveCount:      s.solveCount,
		Plan:            s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

func (s *Service) handlePlan(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.hasSnapshot
	body := struct {
		Plan      Snapshot       `json:"plan"`
		Positions []PositionView `json:"positions"`
	}{s.snapshot, s.positions}
	s.mu.RUnlock()

	if !ready {
		http.Error(w, "no plan solved yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, body)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current plan immediately.
	writeSSE(w, Event{Type: "plan", Timestamp: time.Now(), Snapshot: s.snapshotStatus().Plan})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
