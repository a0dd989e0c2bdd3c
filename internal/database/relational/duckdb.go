// Package relational persists the reading log in DuckDB.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb" // Register DuckDB driver
)

// DatabaseClient defines the contract for database operations.
type DatabaseClient interface {
	// DB returns the underlying sql.DB instance.
	DB() *sql.DB
	// Close releases database resources.
	Close() error
	// Ping verifies database connectivity.
	Ping(ctx context.Context) error
}

// DatabaseConfig holds configuration options for the database.
type DatabaseConfig struct {
	Threads       int           // Number of threads for DuckDB (0 = default)
	MemoryLimitMB int           // Memory limit in MB (0 = default)
	Timeout       time.Duration // Connect timeout (0 = no timeout)
	ReadOnly      bool          // Open the file in read-only mode
}

// DuckDBClient manages the connection to the reading log database.
type DuckDBClient struct {
	db     *sql.DB
	dsn    string
	config DatabaseConfig
}

// DuckDBOption configures the DuckDB client.
type DuckDBOption func(*DatabaseConfig)

// WithThreads sets the number of DuckDB threads.
func WithThreads(n int) DuckDBOption {
	return func(c *DatabaseConfig) {
		c.Threads = n
	}
}

// WithMemoryLimit sets the DuckDB memory limit in MB.
func WithMemoryLimit(mb int) DuckDBOption {
	return func(c *DatabaseConfig) {
		c.MemoryLimitMB = mb
	}
}

// WithTimeout bounds the initial connectivity check.
func WithTimeout(d time.Duration) DuckDBOption {
	return func(c *DatabaseConfig) {
		c.Timeout = d
	}
}

// WithReadOnly opens the database without write access, for inspecting a
// log that another process is writing.
func WithReadOnly() DuckDBOption {
	return func(c *DatabaseConfig) {
		c.ReadOnly = true
	}
}

// Open connects to the DuckDB file at path. An empty path opens an
// in-memory database, which lives as long as the client.
func Open(ctx context.Context, path string, opts ...DuckDBOption) (*DuckDBClient, error) {
	client := &DuckDBClient{dsn: path}
	for _, opt := range opts {
		if opt != nil {
			opt(&client.config)
		}
	}

	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	} else if client.config.ReadOnly {
		dsn += "?access_mode=READ_ONLY"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	if client.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, client.config.Timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// A single connection keeps an in-memory database alive and
	// serializes writes from the recorder.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	client.db = db

	if err := client.configure(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure duckdb: %w", err)
	}
	return client, nil
}

func (c *DuckDBClient) configure(ctx context.Context) error {
	if c.config.Threads > 0 {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("PRAGMA threads=%d", c.config.Threads)); err != nil {
			return fmt.Errorf("setting threads: %w", err)
		}
	}
	if c.config.MemoryLimitMB > 0 {
		if _, err := c.db.ExecContext(ctx, fmt.Sprintf("PRAGMA memory_limit='%dMB'", c.config.MemoryLimitMB)); err != nil {
			return fmt.Errorf("setting memory limit: %w", err)
		}
	}
	return nil
}

// DB returns the underlying sql.DB instance.
func (c *DuckDBClient) DB() *sql.DB {
	return c.db
}

// Path returns the database file, or "" for an in-memory database.
func (c *DuckDBClient) Path() string {
	return c.dsn
}

// Close releases database resources.
func (c *DuckDBClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies database connectivity.
func (c *DuckDBClient) Ping(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}
