package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Ingester runs a full re-ingestion
type Ingester interface {
	Full(ctx context.Context) error
}

// RunStatus describes the most recent scheduled run
type RunStatus struct {
	Schedule string    `json:"schedule"`
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"last_run,omitempty"`
	LastErr  string    `json:"last_error,omitempty"`
	NextRun  time.Time `json:"next_run,omitempty"`
}

// Scheduler triggers periodic re-ingestion on a cron schedule. Overlapping
// runs are skipped: a tick fired while an ingestion is still in flight is a
// no-op.
type Scheduler struct {
	ingester Ingester
	schedule string
	cron     *cron.Cron
	entryID  cron.EntryID
	inFlight atomic.Bool

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// New creates a scheduler. schedule is a standard cron expression; an empty
// schedule disables scheduling.
func New(ingester Ingester, schedule string) *Scheduler {
	return &Scheduler{
		ingester: ingester,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start begins scheduled ingestion
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.schedule == "" {
		log.Printf("[Scheduler] No schedule configured, scheduled ingestion disabled")
		return nil
	}

	id, err := s.cron.AddFunc(s.schedule, s.tick)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true
	log.Printf("[Scheduler] Scheduled ingestion with schedule: %s", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	s.running = false

	select {
	case <-ctx.Done():
		log.Printf("[Scheduler] Stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Printf("[Scheduler] Stop timed out")
	}
}

// tick runs one scheduled ingestion, skipping if one is already in flight
func (s *Scheduler) tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Printf("[Scheduler] Previous ingestion still running, skipping this tick")
		return
	}
	defer s.inFlight.Store(false)

	log.Printf("[Scheduler] Starting scheduled ingestion")
	start := time.Now()
	err := s.ingester.Full(context.Background())

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		log.Printf("[Scheduler] Scheduled ingestion failed after %v: %v", time.Since(start), err)
		return
	}
	log.Printf("[Scheduler] Scheduled ingestion completed in %v", time.Since(start))
}

// Status reports the scheduler state
func (s *Scheduler) Status() RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := RunStatus{
		Schedule: s.schedule,
		Running:  s.running,
		LastRun:  s.lastRun,
	}
	if s.lastErr != nil {
		status.LastErr = s.lastErr.Error()
	}
	if s.running {
		status.NextRun = s.cron.Entry(s.entryID).Next
	}
	return status
}
