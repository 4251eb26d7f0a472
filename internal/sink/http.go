package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/procsift/procsift/internal/models"
)

// envelope is the reporting API's wire shape.
type envelope struct {
	Name string                  `json:"name"`
	Data []models.CanonicalOrder `json:"data"`
}

type HTTPSink struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPSink(url, token string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSink{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSink) Send(ctx context.Context, name string, batch []models.CanonicalOrder) error {
	body, err := json.Marshal(envelope{Name: name, Data: batch})
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reporting API returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSink) Close() {}
