package shared

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequence hands out human-readable display ids (SO-000042, INV-000007).
// Services receive it injected at construction; there is no process-wide
// counter.
type Sequence interface {
	Next(ctx context.Context, tenantID uuid.UUID, entityType string) (string, error)
}

var displayPrefixes = map[string]string{
	"sales_order":    "SO",
	"pick_list":      "PL",
	"delivery_order": "DO",
	"invoice":        "INV",
	"credit_note":    "CN",
}

// DisplayPrefix returns the document prefix for an entity type, defaulting
// to DOC for unknown types.
func DisplayPrefix(entityType string) string {
	if p, ok := displayPrefixes[entityType]; ok {
		return p
	}
	return "DOC"
}

// PGSequence allocates display ids from a per-tenant counter row. The upsert
// keeps allocation safe under concurrent writers.
type PGSequence struct {
	pool *pgxpool.Pool
}

// NewPGSequence constructs the Postgres-backed sequence.
func NewPGSequence(pool *pgxpool.Pool) *PGSequence {
	return &PGSequence{pool: pool}
}

// Next increments and returns the formatted display id.
func (s *PGSequence) Next(ctx context.Context, tenantID uuid.UUID, entityType string) (string, error) {
	const query = `
		INSERT INTO display_id_sequences (tenant_id, entity_type, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, entity_type)
		DO UPDATE SET last_value = display_id_sequences.last_value + 1
		RETURNING last_value`
	var n int64
	if err := s.pool.QueryRow(ctx, query, tenantID, entityType).Scan(&n); err != nil {
		return "", fmt.Errorf("shared: next display id: %w", err)
	}
	return fmt.Sprintf("%s-%06d", DisplayPrefix(entityType), n), nil
}

// MemSequence is a deterministic in-memory Sequence for tests.
type MemSequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemSequence constructs an empty in-memory sequence.
func NewMemSequence() *MemSequence {
	return &MemSequence{counters: make(map[string]int64)}
}

// Next increments the counter keyed by tenant and entity type.
func (s *MemSequence) Next(_ context.Context, tenantID uuid.UUID, entityType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantID.String() + "/" + entityType
	s.counters[key]++
	return fmt.Sprintf("%s-%06d", DisplayPrefix(entityType), s.counters[key]), nil
}
