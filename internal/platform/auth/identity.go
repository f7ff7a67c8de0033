// Package auth resolves the caller's identity. The external identity
// provider verifies who the caller is; the role is derived from the admin
// email allowlist and attached to the request context as an Identity that
// domain services receive as call context.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is the access level of a portal user.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleDoctor Role = "DOCTOR"
)

// Identity is the resolved caller: verified user id and email plus the
// derived role. Services never consult globals for this.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the resolved identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the resolved identity. ok is false when no
// identity was resolved for this request.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
