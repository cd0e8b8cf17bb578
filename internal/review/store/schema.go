package store

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
)

var schemas = map[database.Dialect][]string{
	database.Postgres: {
		`CREATE TABLE IF NOT EXISTS reviews (
			id         BIGSERIAL PRIMARY KEY,
			movie_id   BIGINT   NOT NULL,
			user_name  TEXT     NOT NULL,
			rating     SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 10),
			body       TEXT     NOT NULL DEFAULT '',
			created_at BIGINT   NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_movie ON reviews (movie_id, id)`,
	},
	database.SQLite: {
		`CREATE TABLE IF NOT EXISTS reviews (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			movie_id   INTEGER NOT NULL,
			user_name  TEXT    NOT NULL,
			rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 10),
			body       TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_movie ON reviews (movie_id, id)`,
	},
}

// Migrate creates the reviews table and index if missing.
func (s *Store) Migrate(ctx context.Context) error {
	stmts, ok := schemas[s.db.Dialect]
	if !ok {
		return fmt.Errorf("no review schema for dialect %q", s.db.Dialect)
	}
	for _, stmt := range stmts {
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating reviews schema: %w", err)
		}
	}
	return nil
}
