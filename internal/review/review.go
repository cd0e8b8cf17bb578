// Package review defines user reviews of movies, their validation rules and
// the events emitted when reviews are created or deleted.
package review

import "time"

// AnonymousUser is stored when a review is submitted without a name.
const AnonymousUser = "익명"

const (
	MinRating     = 1
	MaxRating     = 10
	MaxUserLength = 64
	MaxTextLength = 4000
)

// Review is one stored review. MovieID is the external metadata id.
type Review struct {
	ID        int64     `json:"id"`
	MovieID   int64     `json:"movie_id"`
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest is the body accepted by the create endpoint. MovieID is
// usually taken from the URL rather than the body.
type CreateRequest struct {
	MovieID int64  `json:"movie_id" validate:"gt=0"`
	User    string `json:"user" validate:"max=64"`
	Rating  int    `json:"rating" validate:"gte=1,lte=10"`
	Text    string `json:"text" validate:"max=4000"`
}

const (
	EventCreated = "review.created"
	EventDeleted = "review.deleted"
)

// Event is published to the review topic after a successful write.
type Event struct {
	Type       string    `json:"type"`
	ReviewID   int64     `json:"review_id"`
	MovieID    int64     `json:"movie_id"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}
