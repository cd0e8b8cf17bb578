package analytics

import "time"

type EventType string

const (
	EventRecommend     EventType = "recommend"
	EventReviewCreated EventType = "review.created"
	EventReviewDeleted EventType = "review.deleted"
)

// RecommendEvent is tracked once per recommendation request. Resolved is
// false when the seed title was not in the catalog.
type RecommendEvent struct {
	Type             EventType `json:"type"`
	Title            string    `json:"title"`
	Resolved         bool      `json:"resolved"`
	K                int       `json:"k"`
	Returned         int       `json:"returned"`
	MetadataFailures int       `json:"metadata_failures"`
	LatencyUs        int64     `json:"latency_us"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id,omitempty"`
}

// ReviewEvent mirrors the payload the review store publishes.
type ReviewEvent struct {
	Type       EventType `json:"type"`
	ReviewID   int64     `json:"review_id"`
	MovieID    int64     `json:"movie_id"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}

type envelope struct {
	Type EventType `json:"type"`
}
