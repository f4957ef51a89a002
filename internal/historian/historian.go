// Package historian drains the result queue into PostgreSQL. Match actions are
// batched; results are written as they arrive. Matches that stop producing
// actions without ever reporting a result are marked abandoned.
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardmage/internal/cache"
	"github.com/jason-s-yu/cardmage/internal/config"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Popper is the slice of the Redis client the historian reads with.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Sink is where decoded entries end up. *database.Store implements it.
type Sink interface {
	SaveActions(ctx context.Context, actions []models.MatchAction) error
	StoreMatchResult(ctx context.Context, matchID uuid.UUID, r models.MatchResult) error
	MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error)
}

// Service is single-goroutine: everything runs inside Run.
type Service struct {
	queue  Popper
	name   string
	sink   Sink
	cfg    config.Historian
	logger logrus.FieldLogger
	now    func() time.Time

	batch        []models.MatchAction
	lastFlush    time.Time
	lastSweep    time.Time
	lastActivity map[uuid.UUID]time.Time
}

func New(queue Popper, name string, sink Sink, cfg config.Historian, logger logrus.FieldLogger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	return &Service{
		queue:        queue,
		name:         name,
		sink:         sink,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		batch:        make([]models.MatchAction, 0, cfg.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run pops entries until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.lastFlush = s.now()
	s.lastSweep = s.now()
	s.logger.WithField("queue", s.name).Info("historian started")
	defer func() {
		s.flush(context.Background())
		s.logger.Info("historian stopped")
	}()

	for ctx.Err() == nil {
		res, err := s.queue.BLPop(ctx, s.cfg.FlushDelay, s.name).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Error("BLPop failed")
			time.Sleep(s.cfg.FlushDelay)
		case len(res) == 2:
			// res[0] is the queue name
			s.Handle(ctx, []byte(res[1]))
		}

		now := s.now()
		if now.Sub(s.lastFlush) >= s.cfg.FlushDelay {
			s.flush(ctx)
		}
		if s.cfg.SweepEvery > 0 && now.Sub(s.lastSweep) >= s.cfg.SweepEvery {
			s.Sweep(ctx)
		}
	}
}

// Handle routes one queue entry. Malformed entries are logged and dropped.
func (s *Service) Handle(ctx context.Context, data []byte) {
	env, err := cache.Decode(data)
	if err != nil {
		s.logger.WithError(err).Warn("dropping queue entry")
		return
	}
	switch env.Kind {
	case cache.KindAction:
		s.lastActivity[env.Action.MatchID] = s.now()
		s.batch = append(s.batch, *env.Action)
		if len(s.batch) >= s.cfg.BatchSize {
			s.flush(ctx)
		}
	case cache.KindResult:
		// actions of the match must land before its result
		s.flush(ctx)
		delete(s.lastActivity, env.Result.MatchID)
		if err := s.sink.StoreMatchResult(ctx, env.Result.MatchID, *env.Result); err != nil {
			s.logger.WithField("match", env.Result.MatchID).WithError(err).Error("failed to store match result")
			return
		}
		s.logger.WithField("match", env.Result.MatchID).Info("stored match result")
	}
}

func (s *Service) flush(ctx context.Context) {
	s.lastFlush = s.now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.sink.SaveActions(ctx, s.batch); err != nil {
		s.logger.WithError(err).WithField("actions", len(s.batch)).Error("failed to flush actions")
	} else {
		s.logger.WithField("actions", len(s.batch)).Debug("flushed actions")
	}
	s.batch = s.batch[:0]
}

// Sweep marks matches idle for longer than the inactivity timeout as abandoned.
func (s *Service) Sweep(ctx context.Context) {
	now := s.now()
	s.lastSweep = now
	for id, last := range s.lastActivity {
		if now.Sub(last) <= s.cfg.Inactivity {
			continue
		}
		delete(s.lastActivity, id)
		marked, err := s.sink.MarkMatchAbandoned(ctx, id)
		if err != nil {
			s.logger.WithField("match", id).WithError(err).Error("failed to mark match abandoned")
			continue
		}
		if marked {
			s.logger.WithField("match", id).Info("marked match abandoned after inactivity")
		}
	}
}
