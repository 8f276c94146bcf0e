package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lodgfy-booking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPGuestDirectory_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/guests/guest-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"guest_id":"guest-1","name":"Ana","email":"ana@example.com"}`))
	}))
	defer srv.Close()

	dir := NewHTTPGuestDirectory(srv.URL, time.Second, zap.NewNop())
	g, err := dir.GetGuest(context.Background(), "guest-1")

	require.NoError(t, err)
	assert.Equal(t, "Ana", g.Name)
	assert.Equal(t, "ana@example.com", g.Email)

	ok, err := dir.GuestExists(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHTTPGuestDirectory_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := NewHTTPGuestDirectory(srv.URL, time.Second, zap.NewNop())

	_, err := dir.GetGuest(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)

	ok, err := dir.GuestExists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTPGuestDirectory_BreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := NewHTTPGuestDirectory(srv.URL, time.Second, zap.NewNop())
	for i := 0; i < 5; i++ {
		_, err := dir.GetGuest(context.Background(), "guest-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrGuestDirectoryUnavailable)
	}
	before := atomic.LoadInt32(&calls)

	_, err := dir.GetGuest(context.Background(), "guest-1")
	assert.ErrorIs(t, err, ErrGuestDirectoryUnavailable)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}
