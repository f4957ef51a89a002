// internal/server/ping.go
package server

import (
	"context"
	"time"

	"github.com/jason-s-yu/cardmage/internal/protocol"
)

// RunPings sends a keepalive to every registered session each interval until
// ctx is cancelled. A ping that does not fit the queue is dropped, unlike
// other payloads; the reader notices dead peers.
func (s *Server) RunPings(ctx context.Context) {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pingAll()
		}
	}
}

func (s *Server) pingAll() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("ping pass panicked")
		}
	}()
	ping := protocol.Ping()
	for _, p := range s.Registry.Snapshot() {
		if !p.TrySend(ping) {
			s.logger.WithField("session", p.SessionID).Debug("ping not queued")
		}
	}
}
