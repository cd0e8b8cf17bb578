// Package handler serves the review HTTP endpoints.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/internal/review"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Store is the review persistence the handler needs.
type Store interface {
	Create(ctx context.Context, req review.CreateRequest) (*review.Review, error)
	Get(ctx context.Context, id int64) (*review.Review, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, movieID int64) ([]review.Review, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store) *Handler {
	return &Handler{
		store:  store,
		logger: slog.Default().With("component", "review-handler"),
	}
}

// Register mounts the review routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/movies/{id}/reviews", h.List)
	mux.HandleFunc("POST /api/v1/movies/{id}/reviews", h.Create)
	mux.HandleFunc("GET /api/v1/reviews/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", h.Delete)
}

type listResponse struct {
	MovieID int64           `json:"movie_id"`
	Count   int             `json:"count"`
	Reviews []review.Review `json:"reviews"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	movieID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	reviews, err := h.store.List(r.Context(), movieID)
	if err != nil {
		h.fail(w, r, "listing reviews failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, listResponse{MovieID: movieID, Count: len(reviews), Reviews: reviews})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	movieID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req review.CreateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.MovieID = movieID

	rv, err := h.store.Create(r.Context(), req)
	if err != nil {
		var verr *review.ValidationError
		if apperrors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		h.fail(w, r, "creating review failed", err)
		return
	}
	logger.FromContext(r.Context()).Info("review created", "review_id", rv.ID, "movie_id", rv.MovieID, "rating", rv.Rating)
	h.writeJSON(w, http.StatusCreated, rv)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rv, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "fetching review failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, rv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "deleting review failed", err)
		return
	}
	logger.FromContext(r.Context()).Info("review deleted", "review_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status_code", status)
		h.writeError(w, status, msg)
		return
	}
	log.Debug(msg, "error", err, "status_code", status)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
