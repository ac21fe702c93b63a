package provider

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "assesscal/internal/log"
	"assesscal/internal/metrics"
	"assesscal/internal/model"
)

// Store holds the latest record snapshot. Views read it on every request;
// Refresh replaces it wholesale. A failed refresh keeps the previous
// snapshot.
type Store struct {
	src Source

	mu        sync.RWMutex
	records   []model.Record
	updatedAt time.Time
	lastErr   error
}

// Status describes the most recent refresh.
type Status struct {
	Records   int       `json:"records"`
	UpdatedAt time.Time `json:"updated_at"`
	LastError string    `json:"last_error,omitempty"`
}

// NewStore creates an empty store backed by src.
func NewStore(src Source) *Store {
	return &Store{src: src}
}

// Refresh pulls records from the source.
func (s *Store) Refresh(ctx context.Context) error {
	recs, err := s.src.Records(ctx)
	metrics.ObserveRefresh(err, len(recs))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		appLog.Error("snapshot refresh failed; keeping previous", err, "records", len(s.records))
		return err
	}
	s.records = recs
	s.updatedAt = time.Now().UTC()
	appLog.Info("snapshot refreshed", "records", len(recs))
	return nil
}

// Records returns the current snapshot. Callers must not modify it.
func (s *Store) Records() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Status reports the snapshot size and the outcome of the last refresh.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Records:   len(s.records),
		UpdatedAt: s.updatedAt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Scheduler runs Store.Refresh on a cron schedule.
type Scheduler struct {
	c *cron.Cron
}

// NewScheduler registers store refreshes on spec (standard 5-field cron).
// Each run gets its own timeout-bounded context derived from ctx.
func NewScheduler(ctx context.Context, spec string, store *Store) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		_ = store.Refresh(runCtx)
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{c: c}, nil
}

// Start begins running scheduled refreshes in the background.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
