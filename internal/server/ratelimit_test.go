package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _ := rl.Allow("10.0.0.1")
		assert.True(t, ok, "request %d within burst", i)
	}
	ok, wait := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok, "other clients have their own bucket")

	now = now.Add(time.Second)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok, "bucket refills over time")
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	assert.Len(t, rl.clients, 2)

	now = now.Add(limiterIdleTTL + time.Minute)
	rl.Allow("b")
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "b")
}

func TestRateLimitMiddleware(t *testing.T) {
	s, store := newTestServer(t, Options{WriteRate: 0.5, WriteBurst: 1})

	w := doRequest(t, s, http.MethodPost, "/shows", strings.NewReader(`{"name":"Lost","episodes_seen":1}`), "application/json")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, s, http.MethodPost, "/shows", strings.NewReader(`{"name":"Lost","episodes_seen":1}`), "application/json")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "too many requests", decodeEnvelope(t, w).Message)
	assert.Equal(t, 1, store.len())

	// Reads are never limited.
	for i := 0; i < 5; i++ {
		w = doRequest(t, s, http.MethodGet, "/shows", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestClientKey(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientKey(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientKey(req))
}
