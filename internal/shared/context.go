package shared

import (
	"context"

	"github.com/google/uuid"
)

// TenantContext identifies the tenant and acting user for a request. Every
// repository query is scoped by TenantID; handlers never pass a raw tenant id
// around.
type TenantContext struct {
	TenantID  uuid.UUID
	ActorID   uuid.UUID
	ActorName string
}

type tenantContextKey struct{}

// ContextWithTenant stores the tenant context.
func ContextWithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tc)
}

// TenantFromContext extracts the tenant context, nil when unauthenticated.
func TenantFromContext(ctx context.Context) *TenantContext {
	tc, _ := ctx.Value(tenantContextKey{}).(*TenantContext)
	return tc
}
