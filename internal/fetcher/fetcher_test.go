package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procsift/procsift/internal/logging"
)

func newTestFetcher(pacing Pacing) (*Fetcher, *[]time.Duration) {
	f := New(pacing, logging.New(slog.LevelError, "text"))
	var slept []time.Duration
	f.sleep = func(d time.Duration) { slept = append(slept, d) }
	return f, &slept
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(Pacing{})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, slept := newTestFetcher(Pacing{})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())

	// Retry pauses grow with the attempt number.
	require.Len(t, *slept, 2)
	assert.Equal(t, 1*time.Second, (*slept)[0])
	assert.Equal(t, 2*time.Second, (*slept)[1])
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(Pacing{})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestFetchJSONRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>nope</html>"))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(Pacing{})
	_, err := f.FetchJSON(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestPacingPauseAfterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	f, slept := newTestFetcher(Pacing{
		Enabled:  true,
		MinDelay: 2 * time.Second,
		MaxDelay: 4 * time.Second,
	})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Len(t, *slept, 1)
	assert.GreaterOrEqual(t, (*slept)[0], 2*time.Second)
	assert.Less(t, (*slept)[0], 4*time.Second)
}

func TestPacingSlowEvery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	f, slept := newTestFetcher(Pacing{
		Enabled:      true,
		MinDelay:     2 * time.Second,
		MaxDelay:     4 * time.Second,
		SlowEvery:    3,
		SlowMinDelay: 7 * time.Second,
		SlowMaxDelay: 10 * time.Second,
	})

	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}

	require.Len(t, *slept, 3)
	assert.Less(t, (*slept)[0], 4*time.Second)
	assert.Less(t, (*slept)[1], 4*time.Second)
	// Every third pause backs off harder.
	assert.GreaterOrEqual(t, (*slept)[2], 7*time.Second)
}

func TestPacingDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	f, slept := newTestFetcher(Pacing{Enabled: false})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, *slept)
}
