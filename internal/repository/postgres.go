package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procsift/procsift/internal/models"
)

const queryTimeout = 5 * time.Second

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// The pipeline is single-writer; a small pool is plenty.
	config.MaxConns = 5
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) UpsertCustomer(ctx context.Context, customerID, url string, payload json.RawMessage) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE customer_id = $1)`,
		customerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check customer existence: %w", err)
	}
	if exists {
		return false, nil
	}

	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO customers (customer_id, url, payload) VALUES ($1, $2, $3)`,
		customerID, url, payload,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert customer: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// Last match wins if duplicates slipped in under a concurrent run.
	query := `
		SELECT customer_id, url, payload, created_at
		FROM customers
		WHERE customer_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var c models.Customer
	err := s.pool.QueryRow(ctx, query, customerID).Scan(
		&c.CustomerID, &c.URL, &c.Payload, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) InsertOrder(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	raw := order.RawPayload
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	detail := order.DetailPayload
	if len(detail) == 0 {
		detail = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO orders
		(order_id, order_type, url, raw_payload, detail_payload, customer_id, sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		order.OrderID, order.OrderType, order.URL,
		raw, detail, order.CustomerID, order.Sent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT order_id, order_type, url, raw_payload, detail_payload,
		       customer_id, sent, created_at
		FROM orders
		WHERE order_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var o models.Order
	err := s.pool.QueryRow(ctx, query, orderID).Scan(
		&o.OrderID, &o.OrderType, &o.URL, &o.RawPayload, &o.DetailPayload,
		&o.CustomerID, &o.Sent, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) OrderIDs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT order_id FROM orders`)
	if err != nil {
		return nil, fmt.Errorf("failed to list order ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) ListUnsentOrders(ctx context.Context) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT order_id, order_type, url, raw_payload, detail_payload,
		       customer_id, sent, created_at
		FROM orders
		WHERE NOT sent
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsent orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.OrderID, &o.OrderType, &o.URL, &o.RawPayload, &o.DetailPayload,
			&o.CustomerID, &o.Sent, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// Clearing the payloads here is the retention policy, not cleanup.
	query := `
		UPDATE orders
		SET sent = TRUE, raw_payload = '{}', detail_payload = '{}'
		WHERE order_id = $1
	`

	if _, err := s.pool.Exec(ctx, query, orderID); err != nil {
		return fmt.Errorf("failed to mark order sent: %w", err)
	}
	return nil
}
