// Package fetcher provides the shared HTTP fetch helper used by concrete
// sources: browser-like headers, bounded retry, and rate-limit pacing.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/procsift/procsift/internal/logging"
)

const (
	defaultTimeout = 10 * time.Second
	maxAttempts    = 10

	acceptHeader    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	userAgentHeader = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:104.0) Gecko/20100101 Firefox/104.0"
)

// Pacing controls the deliberate pause after every fetch. Every SlowEvery-th
// pause uses the slow range to back off harder.
type Pacing struct {
	Enabled      bool
	MinDelay     time.Duration
	MaxDelay     time.Duration
	SlowEvery    int
	SlowMinDelay time.Duration
	SlowMaxDelay time.Duration
}

type Fetcher struct {
	client *http.Client
	pacing Pacing
	log    *logging.Logger

	sleeps int
	sleep  func(time.Duration) // overridable in tests
}

func New(pacing Pacing, log *logging.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: defaultTimeout},
		pacing: pacing,
		log:    log,
		sleep:  time.Sleep,
	}
}

// Fetch GETs the URL, returning the raw body. Transient failures are retried
// with a pause growing in the attempt number; after maxAttempts the last
// error is returned. A pacing pause follows every successful request.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := f.get(ctx, url)
		if err == nil {
			f.pause()
			return body, nil
		}
		lastErr = err
		f.log.Warn("fetch attempt failed",
			"url", url, "attempt", attempt, "error", err)
		f.sleep(time.Duration(attempt) * time.Second)
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

// FetchJSON GETs the URL and checks the body is valid JSON.
func (f *Fetcher) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("fetch %s: response is not valid JSON", url)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgentHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (f *Fetcher) pause() {
	if !f.pacing.Enabled {
		return
	}
	f.sleeps++
	min, max := f.pacing.MinDelay, f.pacing.MaxDelay
	if f.pacing.SlowEvery > 0 && f.sleeps%f.pacing.SlowEvery == 0 {
		min, max = f.pacing.SlowMinDelay, f.pacing.SlowMaxDelay
	}
	if max <= min {
		f.sleep(min)
		return
	}
	f.sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}
