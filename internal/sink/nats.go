package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/procsift/procsift/internal/models"
)

// NATSSink publishes each batch as a JSON message on a subject, for
// deployments where the reporting side consumes from a bus instead of HTTP.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSink(url, subject, clientName string) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Send(ctx context.Context, name string, batch []models.CanonicalOrder) error {
	body, err := json.Marshal(envelope{Name: name, Data: batch})
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}
	if err := s.conn.Publish(s.subject, body); err != nil {
		return fmt.Errorf("failed to publish batch: %w", err)
	}
	// Publish is fire-and-forget; flush so a dead server surfaces here.
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush publish: %w", err)
	}
	return nil
}

func (s *NATSSink) Close() {
	s.conn.Drain()
}
