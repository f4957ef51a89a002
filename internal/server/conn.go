// internal/server/conn.go
package server

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/jason-s-yu/cardmage/internal/lobby"
	"github.com/jason-s-yu/cardmage/internal/middleware"
	"github.com/jason-s-yu/cardmage/internal/protocol"
	"github.com/jason-s-yu/cardmage/internal/session"
	"github.com/sirupsen/logrus"
)

const readBufferSize = 8192

var errOverflow = errors.New("outbound queue overflow")

// ServeConn runs one connection to completion: a writer goroutine drains the
// player's outbound queue while this goroutine reads, decodes and dispatches.
// It returns after the player has been detached from any lobby or match.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn, transport string) {
	remote := conn.RemoteAddr().String()
	p := session.NewPlayer(s.newGuest(), s.cfg.OutboundQueueSize)
	s.Registry.Add(p)
	logger := s.logger.WithFields(logrus.Fields{"session": p.SessionID, "remote": remote})
	middleware.LogConnect(logger, transport, remote)

	written := make(chan struct{})
	go s.writeLoop(conn, p, logger, written)

	readDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	err := s.readLoop(ctx, conn, p, logger)
	close(readDone)

	s.disconnect(p)
	s.Registry.Remove(p)
	p.CloseOutbound()
	<-written
	conn.Close()
	middleware.LogDisconnect(logger, transport, remote, err)
}

// readLoop returns nil for an orderly goodbye and the cause otherwise.
func (s *Server) readLoop(ctx context.Context, conn net.Conn, p *session.Player, logger logrus.FieldLogger) error {
	dec := protocol.NewDecoder(s.cfg.MaxFrameSize)
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				payload, ok, ferr := dec.Next()
				if errors.Is(ferr, protocol.ErrDisconnect) {
					return nil
				}
				if ferr != nil {
					logger.WithError(ferr).Warn("framing error, closing connection")
					return ferr
				}
				if !ok {
					break
				}
				if errors.Is(s.dispatch(ctx, p, payload), errQuit) {
					return nil
				}
			}
		}
		if err != nil {
			if p.Overflowed() {
				return errOverflow
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// writeLoop frames and writes outbound payloads until the queue is closed,
// then closes the connection so a blocked reader returns. After a write error
// it keeps draining so producers never notice.
func (s *Server) writeLoop(conn net.Conn, p *session.Player, logger logrus.FieldLogger, done chan<- struct{}) {
	defer close(done)
	defer conn.Close()
	failed := false
	for payload := range p.Outbound() {
		if failed {
			continue
		}
		if _, err := conn.Write(protocol.Encode(payload)); err != nil {
			logger.WithError(err).Debug("write failed")
			failed = true
			conn.Close()
		}
	}
	if p.Overflowed() {
		logger.Warn("outbound queue overflowed, closing connection")
	}
}

// disconnect detaches p from wherever it is. A lobby can turn into a match
// under our feet, so it loops until the player is unattached.
func (s *Server) disconnect(p *session.Player) {
	for {
		switch p.Context() {
		case session.InLobby:
			if err := s.Lobbies.Leave(p); err != nil {
				s.logger.WithField("session", p.SessionID).WithError(err).Debug("lobby leave on disconnect")
				if errors.Is(err, lobby.ErrNoLobby) && p.Context() == session.InLobby {
					return
				}
			}
		case session.InMatch:
			if m, _ := p.Match(); m != nil {
				m.Leave(p)
			}
			return
		default:
			return
		}
	}
}
