// Package store persists reviews in PostgreSQL or SQLite and publishes a
// Kafka event after each successful write.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/review"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
)

// Timestamps are stored as unix milliseconds so both dialects scan them
// into int64 the same way.

const (
	insertReview = `INSERT INTO reviews (movie_id, user_name, rating, body, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`
	deleteReview = `DELETE FROM reviews WHERE id = ? RETURNING movie_id, rating`
	selectByID   = `SELECT id, movie_id, user_name, rating, body, created_at FROM reviews WHERE id = ?`
	selectMovie  = `SELECT id, movie_id, user_name, rating, body, created_at FROM reviews
		WHERE movie_id = ? ORDER BY id ASC`
)

type Store struct {
	db        *database.Client
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a Store. A nil publisher discards events.
func New(db *database.Client, publisher kafka.Publisher, m *metrics.Metrics) *Store {
	if publisher == nil {
		publisher = kafka.Discard{}
	}
	return &Store{
		db:        db,
		publisher: publisher,
		metrics:   m,
		logger:    slog.Default().With("component", "review-store", "dialect", string(db.Dialect)),
		now:       time.Now,
	}
}

// Create normalises and validates req, inserts it and returns the stored
// review.
func (s *Store) Create(ctx context.Context, req review.CreateRequest) (*review.Review, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	created := s.now().UTC().Truncate(time.Millisecond)
	var id int64
	err := s.db.DB.QueryRowContext(ctx, s.db.Rebind(insertReview),
		req.MovieID, req.User, req.Rating, req.Text, created.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("inserting review for movie %d: %w", req.MovieID, err)
	}

	rv := &review.Review{
		ID:        id,
		MovieID:   req.MovieID,
		User:      req.User,
		Rating:    req.Rating,
		Text:      req.Text,
		CreatedAt: created,
	}
	s.count("create")
	s.publish(ctx, review.Event{
		Type:       review.EventCreated,
		ReviewID:   rv.ID,
		MovieID:    rv.MovieID,
		Rating:     rv.Rating,
		OccurredAt: created,
	})
	return rv, nil
}

// Delete removes a review by id. Unknown ids return ErrNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("review id %d: %w", id, apperrors.ErrInvalidInput)
	}
	var movieID int64
	var rating int
	err := s.db.DB.QueryRowContext(ctx, s.db.Rebind(deleteReview), id).Scan(&movieID, &rating)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("review %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting review %d: %w", id, err)
	}

	s.count("delete")
	s.publish(ctx, review.Event{
		Type:       review.EventDeleted,
		ReviewID:   id,
		MovieID:    movieID,
		Rating:     rating,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*review.Review, error) {
	rv, err := scanReview(s.db.DB.QueryRowContext(ctx, s.db.Rebind(selectByID), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review %d: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading review %d: %w", id, err)
	}
	return rv, nil
}

// List returns the reviews of one movie in insertion order. A movie
// without reviews yields an empty slice.
func (s *Store) List(ctx context.Context, movieID int64) ([]review.Review, error) {
	rows, err := s.db.DB.QueryContext(ctx, s.db.Rebind(selectMovie), movieID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews for movie %d: %w", movieID, err)
	}
	defer rows.Close()

	out := make([]review.Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		out = append(out, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reviews: %w", err)
	}
	return out, nil
}

// Ping reports whether the backing database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(row scanner) (*review.Review, error) {
	var rv review.Review
	var createdMillis int64
	if err := row.Scan(&rv.ID, &rv.MovieID, &rv.User, &rv.Rating, &rv.Text, &createdMillis); err != nil {
		return nil, err
	}
	rv.CreatedAt = time.UnixMilli(createdMillis).UTC()
	return &rv, nil
}

// publish never fails the write; the row is already committed.
func (s *Store) publish(ctx context.Context, ev review.Event) {
	err := s.publisher.Publish(ctx, kafka.Event{
		Key:   strconv.FormatInt(ev.MovieID, 10),
		Value: ev,
	})
	if err != nil {
		s.logger.Error("failed to publish review event",
			"type", ev.Type,
			"review_id", ev.ReviewID,
			"error", err,
		)
	}
}

func (s *Store) count(op string) {
	if s.metrics != nil {
		s.metrics.ReviewsTotal.WithLabelValues(op).Inc()
	}
}
