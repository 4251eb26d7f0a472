package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/procsift/procsift/internal/models"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations
func setupTestDatabase(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("procsift_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	store, err := NewPostgresStore(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return store, cleanup
}

// runMigrations runs SQL migrations from the migrations directory
func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	return nil
}

func TestPostgresCustomerLifecycle(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	inserted, err := store.UpsertCustomer(ctx, "c-1", "https://example.com/c-1", json.RawMessage(`{"name":"x"}`))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertCustomer(ctx, "c-1", "https://example.com/other", json.RawMessage(`{"name":"y"}`))
	require.NoError(t, err)
	assert.False(t, inserted)

	c, err := store.GetCustomer(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.CustomerID)
	assert.Equal(t, "https://example.com/c-1", c.URL)
	assert.JSONEq(t, `{"name":"x"}`, string(c.Payload))
	assert.False(t, c.CreatedAt.IsZero())

	_, err = store.GetCustomer(ctx, "missing")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestPostgresOrderLifecycle(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	order := &models.Order{
		OrderID:       "o-1",
		OrderType:     "commercial",
		URL:           "https://example.com/o-1",
		RawPayload:    json.RawMessage(`{"a":1}`),
		DetailPayload: json.RawMessage(`{"b":2}`),
		CustomerID:    "c-1",
	}
	require.NoError(t, store.InsertOrder(ctx, order))
	require.NoError(t, store.InsertOrder(ctx, &models.Order{
		OrderID:    "o-2",
		OrderType:  "commercial",
		CustomerID: "c-1",
	}))

	got, err := store.GetOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "commercial", got.OrderType)
	assert.False(t, got.Sent)
	assert.JSONEq(t, `{"b":2}`, string(got.DetailPayload))

	ids, err := store.OrderIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = store.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresMarkSentClearsPayloads(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertOrder(ctx, &models.Order{
		OrderID:       "o-1",
		RawPayload:    json.RawMessage(`{"big":"payload"}`),
		DetailPayload: json.RawMessage(`{"bigger":"payload"}`),
	}))
	require.NoError(t, store.InsertOrder(ctx, &models.Order{OrderID: "o-2"}))
	require.NoError(t, store.InsertOrder(ctx, &models.Order{OrderID: "o-3"}))

	require.NoError(t, store.MarkSent(ctx, "o-1"))

	got, err := store.GetOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, got.Sent)
	assert.JSONEq(t, `{}`, string(got.RawPayload))
	assert.JSONEq(t, `{}`, string(got.DetailPayload))

	unsent, err := store.ListUnsentOrders(ctx)
	require.NoError(t, err)
	require.Len(t, unsent, 2)
	assert.Equal(t, "o-2", unsent[0].OrderID)
	assert.Equal(t, "o-3", unsent[1].OrderID)

	// Unknown order is a no-op.
	assert.NoError(t, store.MarkSent(ctx, "missing"))
}

func TestPostgresDuplicateOrderLastMatchWins(t *testing.T) {
	store, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	// order_id is deliberately not unique; duplicate rows are tolerated and
	// lookups return the newest one.
	require.NoError(t, store.InsertOrder(ctx, &models.Order{
		OrderID:    "o-1",
		RawPayload: json.RawMessage(`{"v":1}`),
	}))
	require.NoError(t, store.InsertOrder(ctx, &models.Order{
		OrderID:    "o-1",
		RawPayload: json.RawMessage(`{"v":2}`),
	}))

	got, err := store.GetOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got.RawPayload))
}
