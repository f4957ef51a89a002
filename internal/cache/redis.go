// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Envelope kinds.
const (
	KindResult = "result"
	KindAction = "action"
)

// ErrUnknownKind is returned by Decode for an envelope it cannot route.
var ErrUnknownKind = errors.New("unknown envelope kind")

// Envelope is one entry of the result queue read by the historian.
type Envelope struct {
	Kind   string              `json:"kind"`
	Result *models.MatchResult `json:"result,omitempty"`
	Action *models.MatchAction `json:"action,omitempty"`
}

// Decode parses a queue entry and checks it carries what its kind says.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("invalid envelope: %w", err)
	}
	switch {
	case env.Kind == KindResult && env.Result != nil:
	case env.Kind == KindAction && env.Action != nil:
	default:
		return env, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	return env, nil
}

// Pusher is the slice of the Redis client the queue needs.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Connect opens a client for addr and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ResultQueue publishes match results and match actions to a Redis list.
// Results are pushed by the caller's goroutine; actions are buffered and
// pushed by Run so the scheduler never waits on the network.
type ResultQueue struct {
	client  Pusher
	queue   string
	actions chan models.MatchAction
	logger  logrus.FieldLogger
}

func NewResultQueue(client Pusher, queue string, buffer int, logger logrus.FieldLogger) *ResultQueue {
	if buffer <= 0 {
		buffer = 1024
	}
	return &ResultQueue{
		client:  client,
		queue:   queue,
		actions: make(chan models.MatchAction, buffer),
		logger:  logger.WithField("queue", queue),
	}
}

func (q *ResultQueue) push(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", env.Kind, err)
	}
	if err := q.client.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// StoreMatchResult implements match.ResultStore.
func (q *ResultQueue) StoreMatchResult(ctx context.Context, _ uuid.UUID, r models.MatchResult) error {
	return q.push(ctx, Envelope{Kind: KindResult, Result: &r})
}

// RecordAction implements match.ActionLog. It drops the action when the buffer is full.
func (q *ResultQueue) RecordAction(a models.MatchAction) {
	select {
	case q.actions <- a:
	default:
		q.logger.WithFields(logrus.Fields{"match": a.MatchID, "action": a.ActionIndex}).Warn("action buffer full, dropping action")
	}
}

// Run pushes buffered actions until ctx is cancelled, then flushes what is left.
func (q *ResultQueue) Run(ctx context.Context) {
	for {
		select {
		case a := <-q.actions:
			q.pushAction(ctx, a)
		case <-ctx.Done():
			q.flush()
			return
		}
	}
}

func (q *ResultQueue) pushAction(ctx context.Context, a models.MatchAction) {
	if err := q.push(ctx, Envelope{Kind: KindAction, Action: &a}); err != nil {
		q.logger.WithField("match", a.MatchID).WithError(err).Error("failed to publish match action")
	}
}

func (q *ResultQueue) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case a := <-q.actions:
			q.pushAction(ctx, a)
		default:
			return
		}
	}
}
