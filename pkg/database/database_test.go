package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
)

func TestRebind(t *testing.T) {
	pg := &Client{Dialect: Postgres}
	lite := &Client{Dialect: SQLite}
	q := "INSERT INTO reviews (movie_id, rating) VALUES (?, ?) RETURNING id"

	if got := pg.Rebind(q); got != "INSERT INTO reviews (movie_id, rating) VALUES ($1, $2) RETURNING id" {
		t.Errorf("postgres rebind = %q", got)
	}
	if got := lite.Rebind(q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestInTxRollsBack(t *testing.T) {
	c, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, err := c.DB.ExecContext(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v", err)
	}
	if err := c.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (2)`)
		return err
	}); err != nil {
		t.Fatalf("InTx commit: %v", err)
	}

	var count, sum int
	if err := c.DB.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(v), 0) FROM t`).Scan(&count, &sum); err != nil {
		t.Fatal(err)
	}
	if count != 1 || sum != 2 {
		t.Errorf("count=%d sum=%d, want 1 row with v=2", count, sum)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", config.PostgresConfig{}, ""); err == nil {
		t.Error("expected error for unknown driver")
	}
}
