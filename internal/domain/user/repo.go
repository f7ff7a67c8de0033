package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/tocdoc/tocdoc/internal/platform/auth"
)

type Repository interface {
	Upsert(ctx context.Context, email string, role auth.Role) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]*User, error)
}
