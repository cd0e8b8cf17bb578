package apikey

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	v := NewValidator(db)
	if err := v.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return v
}

func TestCreateValidateRevoke(t *testing.T) {
	ctx := context.Background()
	v := newValidator(t)

	raw, info, err := v.CreateKey(ctx, "frontend", "", 60, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if len(raw) != 64 || info.Role != RoleClient {
		t.Fatalf("raw=%q info=%+v", raw, info)
	}

	got, err := v.Validate(ctx, raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.ID != info.ID || got.Name != "frontend" || got.RateLimit != 60 || got.IsAdmin() {
		t.Errorf("validated = %+v", got)
	}

	if _, err := v.Validate(ctx, "not-a-key"); !apperrors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("bad key err = %v, want ErrUnauthorized", err)
	}

	if err := v.RevokeKey(ctx, info.ID); err != nil {
		t.Fatalf("RevokeKey: %v", err)
	}
	if _, err := v.Validate(ctx, raw); err != ErrInvalidKey {
		t.Errorf("revoked key err = %v, want ErrInvalidKey", err)
	}
	if err := v.RevokeKey(ctx, info.ID); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second revoke err = %v, want ErrNotFound", err)
	}
}

func TestExpiredKey(t *testing.T) {
	ctx := context.Background()
	v := newValidator(t)
	past := time.Now().Add(-time.Hour)
	raw, _, err := v.CreateKey(ctx, "old", RoleAdmin, 10, &past)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Validate(ctx, raw); err != ErrExpiredKey {
		t.Errorf("err = %v, want ErrExpiredKey", err)
	}
}

func TestListKeysAndCreateValidation(t *testing.T) {
	ctx := context.Background()
	v := newValidator(t)

	keys, err := v.ListKeys(ctx)
	if err != nil || keys == nil || len(keys) != 0 {
		t.Fatalf("empty list = %v, %v", keys, err)
	}
	if _, _, err := v.CreateKey(ctx, "ops", RoleAdmin, 100, nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := v.CreateKey(ctx, "web", RoleClient, 50, nil); err != nil {
		t.Fatal(err)
	}
	keys, err = v.ListKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("listed %d keys, want 2", len(keys))
	}

	bad := []struct {
		name, role string
		limit      int
	}{
		{"", RoleClient, 1},
		{"x", "root", 1},
		{"x", RoleClient, 0},
	}
	for _, b := range bad {
		if _, _, err := v.CreateKey(ctx, b.name, b.role, b.limit, nil); !apperrors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("CreateKey(%q,%q,%d) err = %v", b.name, b.role, b.limit, err)
		}
	}
}
