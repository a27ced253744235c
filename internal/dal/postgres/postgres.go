package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
)

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx.
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

// ConnString builds the connection string from the postgres.* config keys.
func ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		viper.GetString("postgres.host"),
		viper.GetInt("postgres.port"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.sslmode"),
	)
}

// MustNewClient creates a new Postgres client from the postgres.* config keys
// and applies the migrations.
func MustNewClient() *Client {
	client, err := NewClient(context.Background(), ConnString(), viper.GetString("postgres.migrations_path"), 5)
	if err != nil {
		panic(err)
	}

	return client
}

// NewClient connects to Postgres, retrying up to attempts times, and applies
// the goose migrations found in migrationsPath.
func NewClient(ctx context.Context, connString, migrationsPath string, attempts int) (*Client, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := connectWithRetry(ctx, config, attempts)
	if err != nil {
		return nil, err
	}

	if err := goose.SetDialect("postgres"); err != nil {
		pool.Close()

		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, migrationsPath); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Client{
		pool: pool,
	}, nil
}

func connectWithRetry(ctx context.Context, config *pgxpool.Config, attempts int) (*pgxpool.Pool, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}

		lastErr = err
		slog.Warn("Postgres is not ready, retrying", "attempt", attempt, "error", err)
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", attempts, lastErr)
}
