package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddlewareRecordsRequest(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "HTTP request", entry.Message)
	assert.Equal(t, "/ws", entry.Data["path"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
}

func TestConnectionLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	LogConnect(logger, "tcp", "127.0.0.1:5000")
	LogDisconnect(logger, "tcp", "127.0.0.1:5000", errors.New("reset"))

	require.Len(t, hook.Entries, 2)
	assert.Equal(t, logrus.InfoLevel, hook.Entries[0].Level)
	assert.Equal(t, "tcp", hook.Entries[0].Data["transport"])
	assert.NotNil(t, hook.Entries[1].Data["error"])

	hook.Reset()
	LogDisconnect(logger, "ws", "x", nil)
	_, hasErr := hook.LastEntry().Data["error"]
	assert.False(t, hasErr)
}
