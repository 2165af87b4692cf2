// Package postgres provides the optional corpus source used by the bulk
// index builder: a papers table with id, title, authors, and abstract.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/maryam-tariqq/DSA-Project/pkg/config"
)

// Paper is one corpus row.
type Paper struct {
	ID       string
	Title    string
	Authors  string
	Abstract string
}

// Client wraps a pooled database/sql connection.
type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

// New opens a connection pool and verifies it with a ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// FetchPapers streams every paper row to fn in primary-key order.
func (c *Client) FetchPapers(ctx context.Context, fn func(Paper) error) error {
	rows, err := c.DB.QueryContext(ctx,
		`SELECT id, title, authors, abstract FROM papers ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Authors, &p.Abstract); err != nil {
			return fmt.Errorf("scanning paper row: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating papers: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.DB.Close()
}
