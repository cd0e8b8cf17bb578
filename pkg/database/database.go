// Package database opens the SQL stores used by the services. PostgreSQL
// (lib/pq) backs API keys, analytics snapshots and, optionally, reviews;
// SQLite (modernc.org/sqlite) is the embedded review backend.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
)

// Dialect identifies the SQL flavour behind a Client.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type Client struct {
	DB      *sql.DB
	Dialect Dialect
}

// OpenPostgres connects with the pool settings from cfg and pings once.
func OpenPostgres(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := ping(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, Dialect: Postgres}, nil
}

// OpenSQLite opens (or creates) the database file at path. ":memory:" gives
// a private in-memory database. The pool is capped at one connection since
// SQLite serialises writers anyway and in-memory databases are
// per-connection.
func OpenSQLite(path string) (*Client, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := ping(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite %s: %w", path, err)
	}
	return &Client{DB: db, Dialect: SQLite}, nil
}

// Open picks the backend by driver name ("postgres" or "sqlite").
func Open(driver string, pg config.PostgresConfig, sqlitePath string) (*Client, error) {
	switch Dialect(driver) {
	case Postgres:
		return OpenPostgres(pg)
	case SQLite:
		return OpenSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// Rebind rewrites ? placeholders to $1..$n for PostgreSQL. Queries are
// written with ? and must not contain literal question marks.
func (c *Client) Rebind(query string) string {
	if c.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// InTx runs fn in a transaction, committing on nil and rolling back
// otherwise.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
