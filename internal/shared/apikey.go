package shared

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyStore resolves bearer API keys to a tenant context. Identity
// management lives outside this service; the store only maps an issued key
// to its tenant and actor. Keys are stored bcrypt-hashed and looked up by a
// SHA-256 fingerprint so resolution stays a single indexed read.
type APIKeyStore struct {
	pool *pgxpool.Pool
}

// NewAPIKeyStore constructs the store.
func NewAPIKeyStore(pool *pgxpool.Pool) *APIKeyStore {
	return &APIKeyStore{pool: pool}
}

func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Resolve returns the tenant context for a presented key.
func (s *APIKeyStore) Resolve(ctx context.Context, key string) (*TenantContext, error) {
	if key == "" {
		return nil, ErrInvalidAPIKey
	}
	const query = `
		SELECT tenant_id, actor_id, actor_name, key_hash
		FROM tenant_api_keys
		WHERE key_fingerprint = $1 AND revoked_at IS NULL`
	var (
		tc      TenantContext
		keyHash []byte
	)
	err := s.pool.QueryRow(ctx, query, fingerprint(key)).Scan(&tc.TenantID, &tc.ActorID, &tc.ActorName, &keyHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("shared: resolve api key: %w", err)
	}
	if bcrypt.CompareHashAndPassword(keyHash, []byte(key)) != nil {
		return nil, ErrInvalidAPIKey
	}
	return &tc, nil
}

// Issue stores a new key for the tenant and returns nothing the caller does
// not already hold; the plaintext key is never persisted.
func (s *APIKeyStore) Issue(ctx context.Context, tc TenantContext, key string) error {
	if key == "" {
		return errors.New("api key required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenant_api_keys (id, tenant_id, actor_id, actor_name, key_fingerprint, key_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.New(), tc.TenantID, tc.ActorID, tc.ActorName, fingerprint(key), hash)
	return err
}
