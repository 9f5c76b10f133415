package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*SignalClient, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sleeps := &[]time.Duration{}
	c := NewSignalClient(srv.URL, "tok-awal")
	c.Sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return c, sleeps
}

func TestBackoffFor_CappedDoubling(t *testing.T) {
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, BackoffFor(i+1), "attempt %d", i+1)
	}
}

func TestJoin_SucceedsFirstTry(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Join(context.Background(), uuid.New()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *sleeps)
}

// Gagal transien lalu pulih: retry transparan, pemanggil tidak tahu apa-apa.
func TestJoin_RecoversAfterTransientFailures(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Join(context.Background(), uuid.New()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *sleeps)
}

func TestJoin_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.Join(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGiveUp)
	assert.Equal(t, int32(DefaultMaxAttempts), atomic.LoadInt32(&calls))
	// Jeda antar percobaan: 1, 2, 4, 8 (percobaan pertama tanpa jeda).
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, *sleeps)
}

// 401 → refresh token sekali dan retry langsung, tanpa membakar attempt.
func TestJoin_RefreshesTokenOn401(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer tok-baru" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	var refreshes int32
	c.RefreshToken = func(ctx context.Context) (string, error) {
		atomic.AddInt32(&refreshes, 1)
		return "tok-baru", nil
	}

	require.NoError(t, c.Join(context.Background(), uuid.New()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, *sleeps)
	assert.Equal(t, "tok-baru", c.Token)
}

// 4xx selain 401 bukan masalah jaringan: langsung menyerah tanpa retry.
func TestJoin_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	err := c.Join(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGiveUp)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *sleeps)
}

func TestSignal_PathsPerAction(t *testing.T) {
	sessionID := uuid.New()
	var paths []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Join(context.Background(), sessionID))
	require.NoError(t, c.Heartbeat(context.Background(), sessionID))
	require.NoError(t, c.Leave(context.Background(), sessionID))

	base := "/api/u/class-sessions/" + sessionID.String()
	assert.Equal(t, []string{base + "/join", base + "/heartbeat", base + "/leave"}, paths)
}
