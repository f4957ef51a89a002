// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jason-s-yu/cardmage/internal/auth"
	"github.com/jason-s-yu/cardmage/internal/cards"
	"github.com/jason-s-yu/cardmage/internal/config"
	"github.com/jason-s-yu/cardmage/internal/lobby"
	"github.com/jason-s-yu/cardmage/internal/match"
	"github.com/jason-s-yu/cardmage/internal/models"
	"github.com/jason-s-yu/cardmage/internal/session"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators a Server is built from. Nil fields get a
// working default where one exists.
type Deps struct {
	// Auth validates Login requests. Nil rejects every login.
	Auth auth.Authenticator
	// Users refreshes decks on TokenLogin. Optional.
	Users auth.UserLookup
	// Tokens issues session tokens with LoginAccept. Nil sends an empty token
	// and rejects TokenLogin.
	Tokens  *auth.TokenIssuer
	Cards   cards.Provider
	Results match.ResultStore
	Actions match.ActionLog
	Policy  match.EndStatePolicy
	Logger  logrus.FieldLogger
}

// Server holds everything shared between connections. There are no package globals.
type Server struct {
	Registry  *session.Registry
	Lobbies   *lobby.Store
	Scheduler *match.Scheduler

	cfg      config.Config
	settings match.Settings
	auth     auth.Authenticator
	users    auth.UserLookup
	tokens   *auth.TokenIssuer
	cards    cards.Provider
	actions  match.ActionLog
	policy   match.EndStatePolicy
	logger   logrus.FieldLogger

	guests atomic.Int32
	conns  sync.WaitGroup
}

func New(cfg config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Cards == nil {
		deps.Cards = cards.Default()
	}
	if deps.Auth == nil {
		deps.Auth = auth.Chain{}
	}
	s := &Server{
		Registry: session.NewRegistry(),
		cfg:      cfg,
		settings: Settings(cfg),
		auth:     deps.Auth,
		users:    deps.Users,
		tokens:   deps.Tokens,
		cards:    deps.Cards,
		actions:  deps.Actions,
		policy:   deps.Policy,
		logger:   deps.Logger,
	}
	s.Lobbies = lobby.NewStore(s.startMatch, deps.Logger, lobby.WithRequireReady(cfg.LobbyRequireReady))
	s.Scheduler = match.NewScheduler(cfg.TickInterval, deps.Results, deps.Logger)
	return s
}

// Settings derives match settings from the configuration.
func Settings(cfg config.Config) match.Settings {
	return match.Settings{
		Rows:              cfg.MapRows,
		Cols:              cfg.MapCols,
		Hex:               cfg.MapHex,
		Generator:         cfg.MapGenerator,
		Maze:              cfg.MazeOptions(),
		VisionRange:       cfg.VisionRange,
		HandSize:          cfg.HandSize,
		RejectionFeedback: cfg.MatchRejectionFeedback,
	}
}

// startMatch is the lobby store's StartFunc. A player who disconnected while
// the lobby was closing cannot enter the match; their seat is queued as left.
func (s *Server) startMatch(l *lobby.Lobby, players []*session.Player) error {
	if len(players) == 0 {
		return errors.New("no seated players")
	}
	m := match.New(l.ID(), players, s.settings, match.Deps{
		Cards:   s.cards,
		Policy:  s.policy,
		Actions: s.actions,
		Logger:  s.logger,
	})
	for seat, p := range players {
		if err := p.EnterMatch(l, m, seat); err != nil {
			s.logger.WithFields(logrus.Fields{"session": p.SessionID, "seat": seat, "match": m.ID}).Info("player gone before match start")
			m.LeaveSeat(seat)
		}
	}
	s.Scheduler.Add(m)
	return nil
}

// newGuest returns the identity of a fresh unauthenticated connection.
func (s *Server) newGuest() models.Identity {
	n := s.guests.Add(1)
	return models.Identity{ID: -n, Name: fmt.Sprintf("guest-%d", n)}
}

// Serve accepts TCP connections until ctx is cancelled or the listener fails,
// then waits for open connections to wind down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	s.logger.WithField("addr", ln.Addr().String()).Info("listening for game connections")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.conns.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.ServeConn(ctx, conn, "tcp")
		}()
	}
}
