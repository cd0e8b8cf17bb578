package review

import (
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

func TestCreateRequestValidate(t *testing.T) {
	valid := CreateRequest{MovieID: 19995, User: "kim", Rating: 8, Text: "좋아요"}
	tests := []struct {
		name       string
		mutate     func(*CreateRequest)
		wantFields []string
	}{
		{"valid", func(*CreateRequest) {}, nil},
		{"rating bounds inclusive low", func(r *CreateRequest) { r.Rating = 1 }, nil},
		{"rating bounds inclusive high", func(r *CreateRequest) { r.Rating = 10 }, nil},
		{"rating zero", func(r *CreateRequest) { r.Rating = 0 }, []string{"rating"}},
		{"rating eleven", func(r *CreateRequest) { r.Rating = 11 }, []string{"rating"}},
		{"movie id", func(r *CreateRequest) { r.MovieID = 0 }, []string{"movie_id"}},
		{"empty text allowed", func(r *CreateRequest) { r.Text = "" }, nil},
		{"text too long", func(r *CreateRequest) { r.Text = strings.Repeat("a", MaxTextLength+1) }, []string{"text"}},
		// 64 Hangul syllables are 192 bytes but within the character limit.
		{"user counted in characters", func(r *CreateRequest) { r.User = strings.Repeat("가", MaxUserLength) }, nil},
		{"user too long", func(r *CreateRequest) { r.User = strings.Repeat("a", MaxUserLength+1) }, []string{"user"}},
		{"several fields", func(r *CreateRequest) { r.Rating = 42; r.MovieID = -1 }, []string{"movie_id", "rating"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !apperrors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("error %v does not wrap ErrInvalidInput", err)
			}
			var verr *ValidationError
			if !apperrors.As(err, &verr) {
				t.Fatalf("error %T is not a ValidationError", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Errorf("fields = %v, want %v", verr.Fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if _, ok := verr.Fields[f]; !ok {
					t.Errorf("missing field %q in %v", f, verr.Fields)
				}
			}
		})
	}
}

func TestNormalizeAnonymous(t *testing.T) {
	req := CreateRequest{User: "   ", Text: "  great  "}
	req.Normalize()
	if req.User != AnonymousUser {
		t.Errorf("user = %q, want %q", req.User, AnonymousUser)
	}
	if req.Text != "great" {
		t.Errorf("text = %q", req.Text)
	}
}
