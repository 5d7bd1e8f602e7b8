package middleware

import (
	"context"

	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxTenantID contextKey = "tenant_id"
	ctxRequest  contextKey = "request_id"
)

// Identity is the authenticated caller. The tenant always comes from the
// token, never from the request.
type Identity struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     enums.UserRole
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return uuidFromContext(ctx, ctxUserID)
}

func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return uuidFromContext(ctx, ctxTenantID)
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

// IdentityFromContext returns the caller seeded by Auth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	tenantID, ok := TenantIDFromContext(ctx)
	if !ok {
		return Identity{}, false
	}
	userID, _ := UserIDFromContext(ctx)
	return Identity{UserID: userID, TenantID: tenantID, Role: RoleFromContext(ctx)}, true
}

// WithIdentity injects the caller into the context for downstream handlers.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, id.UserID)
	ctx = context.WithValue(ctx, ctxTenantID, id.TenantID)
	return context.WithValue(ctx, ctxRole, id.Role)
}

func uuidFromContext(ctx context.Context, key contextKey) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	v, ok := ctx.Value(key).(uuid.UUID)
	if !ok || v == uuid.Nil {
		return uuid.Nil, false
	}
	return v, true
}
