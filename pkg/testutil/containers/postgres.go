//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new PostgreSQL container.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("visitors"),
		tcpostgres.WithUsername("visitors"),
		tcpostgres.WithPassword("visitors"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the given tables.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", strings.Join(tables, ", ")))
	return err
}

// Terminate closes the pool and stops the container.
func (p *PostgresContainer) Terminate(ctx context.Context) {
	_ = p.DB.Close()
	_ = p.Container.Terminate(ctx)
}
