package historian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardmage/internal/cache"
	"github.com/jason-s-yu/cardmage/internal/config"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	batches   [][]models.MatchAction
	results   []models.MatchResult
	abandoned []uuid.UUID
	order     []string
	failSave  bool
}

func (f *fakeSink) SaveActions(_ context.Context, actions []models.MatchAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("db down")
	}
	f.batches = append(f.batches, append([]models.MatchAction(nil), actions...))
	f.order = append(f.order, "actions")
	return nil
}

func (f *fakeSink) StoreMatchResult(_ context.Context, _ uuid.UUID, r models.MatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	f.order = append(f.order, "result")
	return nil
}

func (f *fakeSink) MarkMatchAbandoned(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, id)
	return true, nil
}

// fakeQueue serves its entries in order and calls drained once they run out.
type fakeQueue struct {
	entries [][]byte
	drained func()
}

func (q *fakeQueue) BLPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	if len(q.entries) == 0 {
		if q.drained != nil {
			q.drained()
		}
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	next := q.entries[0]
	q.entries = q.entries[1:]
	return redis.NewStringSliceResult([]string{keys[0], string(next)}, nil)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newService(sink Sink, cfg config.Historian) (*Service, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(nil, "results", sink, cfg, quietLogger())
	s.now = c.now
	return s, c
}

func actionEntry(t *testing.T, match uuid.UUID, index int) []byte {
	data, err := json.Marshal(cache.Envelope{Kind: cache.KindAction, Action: &models.MatchAction{
		MatchID:     match,
		ActionIndex: index,
		ActionType:  "end_turn",
	}})
	require.NoError(t, err)
	return data
}

func resultEntry(t *testing.T, match uuid.UUID) []byte {
	data, err := json.Marshal(cache.Envelope{Kind: cache.KindResult, Result: &models.MatchResult{
		MatchID: match,
		Winners: []int{0},
	}})
	require.NoError(t, err)
	return data
}

func TestHandleBatchesActions(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newService(sink, config.Historian{BatchSize: 2, FlushDelay: time.Second})
	match := uuid.New()

	s.Handle(context.Background(), actionEntry(t, match, 1))
	assert.Empty(t, sink.batches)
	s.Handle(context.Background(), actionEntry(t, match, 2))
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 2)
	assert.Equal(t, 2, sink.batches[0][1].ActionIndex)
}

func TestResultFlushesPendingActionsFirst(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newService(sink, config.Historian{BatchSize: 10, FlushDelay: time.Second})
	match := uuid.New()

	s.Handle(context.Background(), actionEntry(t, match, 1))
	s.Handle(context.Background(), resultEntry(t, match))

	assert.Equal(t, []string{"actions", "result"}, sink.order)
	require.Len(t, sink.results, 1)
	assert.Equal(t, match, sink.results[0].MatchID)
	assert.NotContains(t, s.lastActivity, match)
}

func TestHandleDropsMalformedEntries(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newService(sink, config.Historian{BatchSize: 1, FlushDelay: time.Second})

	s.Handle(context.Background(), []byte("not json"))
	s.Handle(context.Background(), []byte(`{"kind":"result"}`))
	s.Handle(context.Background(), []byte(`{"kind":"other","action":{}}`))

	assert.Empty(t, sink.order)
	assert.Empty(t, s.batch)
}

func TestFailedFlushDropsBatch(t *testing.T) {
	sink := &fakeSink{failSave: true}
	s, _ := newService(sink, config.Historian{BatchSize: 1, FlushDelay: time.Second})

	s.Handle(context.Background(), actionEntry(t, uuid.New(), 1))
	assert.Empty(t, s.batch)
}

func TestSweepMarksIdleMatches(t *testing.T) {
	sink := &fakeSink{}
	s, c := newService(sink, config.Historian{BatchSize: 10, FlushDelay: time.Second, Inactivity: time.Minute})
	idle, active, finished := uuid.New(), uuid.New(), uuid.New()

	s.Handle(context.Background(), actionEntry(t, idle, 1))
	s.Handle(context.Background(), actionEntry(t, finished, 1))
	s.Handle(context.Background(), resultEntry(t, finished))
	c.t = c.t.Add(50 * time.Second)
	s.Handle(context.Background(), actionEntry(t, active, 1))
	c.t = c.t.Add(20 * time.Second)

	s.Sweep(context.Background())
	assert.Equal(t, []uuid.UUID{idle}, sink.abandoned)

	// an abandoned match is only reported once
	s.Sweep(context.Background())
	assert.Len(t, sink.abandoned, 1)
}

func TestRunDrainsQueueAndFlushesOnExit(t *testing.T) {
	sink := &fakeSink{}
	match := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := &fakeQueue{
		entries: [][]byte{actionEntry(t, match, 1), actionEntry(t, match, 2), resultEntry(t, match), actionEntry(t, uuid.New(), 1)},
		drained: cancel,
	}
	s := New(q, "results", sink, config.Historian{BatchSize: 100, FlushDelay: time.Hour}, quietLogger())

	s.Run(ctx)

	require.Len(t, sink.results, 1)
	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0], 2)
	assert.Len(t, sink.batches[1], 1)
	assert.Equal(t, []string{"actions", "result", "actions"}, sink.order)
}
