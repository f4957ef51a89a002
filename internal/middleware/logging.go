// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// LogMiddleware logs each HTTP request served by the WebSocket gateway with
// its method, path, remote address and duration. For an upgraded connection
// the duration covers the whole session.
func LogMiddleware(logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP request")
		})
	}
}

// LogConnect logs a new game connection. transport is "tcp" or "ws".
func LogConnect(logger logrus.FieldLogger, transport, remote string) {
	logger.WithFields(logrus.Fields{
		"transport": transport,
		"remote":    remote,
	}).Info("client connected")
}

// LogDisconnect logs the end of a game connection and why it ended.
func LogDisconnect(logger logrus.FieldLogger, transport, remote string, err error) {
	fields := logrus.Fields{
		"transport": transport,
		"remote":    remote,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("client disconnected")
}
