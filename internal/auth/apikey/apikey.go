// Package apikey provides SHA-256-based API key validation. Raw keys are
// generated with crypto/rand, hashed before storage, and validated by
// comparing the hash of the presented key with the stored hash. Keys can
// be created, revoked, and listed.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/errors"
)

var (
	ErrInvalidKey = fmt.Errorf("invalid api key: %w", apperrors.ErrUnauthorized)
	ErrExpiredKey = fmt.Errorf("api key expired: %w", apperrors.ErrUnauthorized)
)

// Roles. Admin keys may manage keys and the metadata cache; client keys
// may write reviews.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// KeyInfo holds metadata about a validated API key.
type KeyInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	RateLimit int        `json:"rate_limit"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IsAdmin reports whether the key carries the admin role.
func (k *KeyInfo) IsAdmin() bool {
	return k != nil && k.Role == RoleAdmin
}

const (
	selectByHash = `SELECT id, name, role, rate_limit, is_active, created_at, expires_at
		FROM api_keys WHERE key_hash = ? AND is_active = ?`
	insertKey = `INSERT INTO api_keys (id, key_hash, name, role, rate_limit, is_active, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	revokeKey  = `UPDATE api_keys SET is_active = ? WHERE id = ? AND is_active = ?`
	selectKeys = `SELECT id, name, role, rate_limit, is_active, created_at, expires_at
		FROM api_keys WHERE is_active = ? ORDER BY created_at DESC, id`
)

var schemas = map[database.Dialect][]string{
	database.Postgres: {
		`CREATE TABLE IF NOT EXISTS api_keys (
			id         TEXT PRIMARY KEY,
			key_hash   TEXT    NOT NULL UNIQUE,
			name       TEXT    NOT NULL,
			role       TEXT    NOT NULL DEFAULT 'client',
			rate_limit INTEGER NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT  NOT NULL,
			expires_at BIGINT
		)`,
	},
	database.SQLite: {
		`CREATE TABLE IF NOT EXISTS api_keys (
			id         TEXT PRIMARY KEY,
			key_hash   TEXT    NOT NULL UNIQUE,
			name       TEXT    NOT NULL,
			role       TEXT    NOT NULL DEFAULT 'client',
			rate_limit INTEGER NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			expires_at INTEGER
		)`,
	},
}

// Validator validates API keys against the api_keys table.
type Validator struct {
	db     *database.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewValidator creates a new API key validator.
func NewValidator(db *database.Client) *Validator {
	return &Validator{
		db:     db,
		logger: slog.Default().With("component", "apikey-validator"),
		now:    time.Now,
	}
}

// Migrate creates the api_keys table if missing.
func (v *Validator) Migrate(ctx context.Context) error {
	stmts, ok := schemas[v.db.Dialect]
	if !ok {
		return fmt.Errorf("no api key schema for dialect %q", v.db.Dialect)
	}
	for _, stmt := range stmts {
		if _, err := v.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating api key schema: %w", err)
		}
	}
	return nil
}

// Validate checks a raw API key against the database.
// Returns KeyInfo on success, or ErrInvalidKey / ErrExpiredKey on failure.
func (v *Validator) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}
	row := v.db.DB.QueryRowContext(ctx, v.db.Rebind(selectByHash), HashKey(rawKey), true)
	info, err := scanKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	if info.ExpiresAt != nil && info.ExpiresAt.Before(v.now()) {
		return nil, ErrExpiredKey
	}
	return info, nil
}

// CreateKey generates a new API key, stores its hash, and returns the raw
// key with its metadata. The raw key is returned only once and cannot be
// retrieved again.
func (v *Validator) CreateKey(ctx context.Context, name, role string, rateLimit int, expiresAt *time.Time) (string, *KeyInfo, error) {
	if name == "" {
		return "", nil, apperrors.New(apperrors.ErrInvalidInput, 400, "key name is required")
	}
	if role == "" {
		role = RoleClient
	}
	if role != RoleClient && role != RoleAdmin {
		return "", nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown role %q", role)
	}
	if rateLimit <= 0 {
		return "", nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "rate limit must be positive, got %d", rateLimit)
	}

	rawKey, err := generateRawKey()
	if err != nil {
		return "", nil, err
	}
	info := &KeyInfo{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		RateLimit: rateLimit,
		IsActive:  true,
		CreatedAt: v.now().UTC().Truncate(time.Millisecond),
	}
	var expiry sql.NullInt64
	if expiresAt != nil {
		t := expiresAt.UTC().Truncate(time.Millisecond)
		info.ExpiresAt = &t
		expiry = sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
	}

	_, err = v.db.DB.ExecContext(ctx, v.db.Rebind(insertKey),
		info.ID, HashKey(rawKey), info.Name, info.Role, info.RateLimit, true, info.CreatedAt.UnixMilli(), expiry,
	)
	if err != nil {
		return "", nil, fmt.Errorf("creating api key: %w", err)
	}

	v.logger.Info("api key created", "id", info.ID, "name", name, "role", role, "rate_limit", rateLimit)
	return rawKey, info, nil
}

// RevokeKey deactivates the key with the given id so it can no longer be
// used.
func (v *Validator) RevokeKey(ctx context.Context, id string) error {
	result, err := v.db.DB.ExecContext(ctx, v.db.Rebind(revokeKey), false, id, true)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("api key %s: %w", id, apperrors.ErrNotFound)
	}
	v.logger.Info("api key revoked", "id", id)
	return nil
}

// ListKeys returns all active API keys (without the raw key / hash).
func (v *Validator) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := v.db.DB.QueryContext(ctx, v.db.Rebind(selectKeys), true)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]KeyInfo, 0)
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner) (*KeyInfo, error) {
	var (
		k         KeyInfo
		createdMs int64
		expiresMs sql.NullInt64
	)
	if err := s.Scan(&k.ID, &k.Name, &k.Role, &k.RateLimit, &k.IsActive, &createdMs, &expiresMs); err != nil {
		return nil, err
	}
	k.CreatedAt = time.UnixMilli(createdMs).UTC()
	if expiresMs.Valid {
		t := time.UnixMilli(expiresMs.Int64).UTC()
		k.ExpiresAt = &t
	}
	return &k, nil
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

// generateRawKey returns a cryptographically random 32-byte hex-encoded
// string suitable for use as an API key.
func generateRawKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
