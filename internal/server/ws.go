// internal/server/ws.go
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/cardmage/internal/middleware"
	"github.com/jason-s-yu/cardmage/internal/protocol"
)

// Subprotocol is the WebSocket subprotocol browser clients must request.
const Subprotocol = "cardmage"

// WSHandler upgrades a request and serves the same framed stream as the TCP
// listener over binary WebSocket messages.
func (s *Server) WSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.logger.WithField("remote", r.RemoteAddr).WithError(err).Warn("WebSocket accept error")
			return
		}
		if c.Subprotocol() != Subprotocol {
			c.Close(websocket.StatusPolicyViolation, "client must use the '"+Subprotocol+"' subprotocol")
			return
		}
		c.SetReadLimit(int64(s.cfg.MaxFrameSize) + protocol.PrefixSize)

		ctx := r.Context()
		conn := websocket.NetConn(ctx, c, websocket.MessageBinary)
		s.ServeConn(ctx, conn, "ws")
	})
}

// ServeWS runs the WebSocket gateway on ln until ctx is cancelled.
func (s *Server) ServeWS(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(s.logger)(s.WSHandler()))
	srv := &http.Server{
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	s.logger.WithField("addr", ln.Addr().String()).Info("listening for WebSocket connections")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
