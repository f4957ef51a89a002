// internal/match/scheduler.go
package match

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTick is the scheduler period.
const DefaultTick = 25 * time.Millisecond

// Scheduler advances every live match on a fixed tick from a single goroutine.
type Scheduler struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*Match

	results  ResultStore
	logger   logrus.FieldLogger
	interval time.Duration
	// reports tracks result uploads still in flight.
	reports sync.WaitGroup
}

// NewScheduler returns an idle scheduler. results may be nil.
func NewScheduler(interval time.Duration, results ResultStore, logger logrus.FieldLogger) *Scheduler {
	if interval <= 0 {
		interval = DefaultTick
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		matches:  make(map[uuid.UUID]*Match),
		results:  results,
		logger:   logger,
		interval: interval,
	}
}

func (s *Scheduler) Add(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
	s.logger.WithFields(logrus.Fields{"match": m.ID, "lobby": m.LobbyID, "seats": m.Seats()}).Info("match scheduled")
}

func (s *Scheduler) Get(id uuid.UUID) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	return m, ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.WithField("interval", s.interval).Info("match scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("match scheduler stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances every live match once. Finished matches are removed after the
// pass, then finished and reported.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	live := make([]*Match, 0, len(s.matches))
	for _, m := range s.matches {
		live = append(live, m)
	}
	s.mu.Unlock()

	var done []*Match
	for _, m := range live {
		if s.advance(m) {
			done = append(done, m)
		}
	}
	if len(done) == 0 {
		return
	}

	s.mu.Lock()
	for _, m := range done {
		delete(s.matches, m.ID)
	}
	s.mu.Unlock()

	for _, m := range done {
		m.Finish()
		s.report(m)
	}
}

// advance runs one match, treating a panic as the match ending.
func (s *Scheduler) advance(m *Match) (over bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{"match": m.ID, "panic": r}).Error("match advance panicked, ending match")
			if m.result == nil {
				m.end(nil, false)
			}
			over = true
		}
	}()
	return m.Advance()
}

func (s *Scheduler) report(m *Match) {
	result, ok := m.Result()
	if !ok || s.results == nil {
		return
	}
	s.reports.Add(1)
	go func() {
		defer s.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.results.StoreMatchResult(ctx, m.ID, result); err != nil {
			s.logger.WithField("match", m.ID).WithError(err).Error("failed to store match result")
		}
	}()
}

// Wait blocks until every result report started so far has returned.
func (s *Scheduler) Wait() {
	s.reports.Wait()
}
