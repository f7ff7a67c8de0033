package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transactor runs fn atomically; repositories called inside fn share one
// transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repository is the persistence boundary for admission events.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// GetActiveByAlias returns the ADMITTED event for the alias, or
	// apperr.NotFound when no active admission exists.
	GetActiveByAlias(ctx context.Context, alias string) (*Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter) ([]*Event, error)
	ListAdmittedByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Event, error)
	// DeleteDischargedBefore removes DISCHARGED events whose discharge date
	// is strictly before cutoff. DeleteAdmittedCreatedBefore removes
	// ADMITTED events created strictly before cutoff (long-stay records).
	DeleteDischargedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAdmittedCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
