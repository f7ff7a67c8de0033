package patient

import (
	"context"
	"time"
)

// Repository is the persistence boundary for legacy patient records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	List(ctx context.Context, f Filter) ([]*Patient, error)
	// ListExpired returns discharged records whose discharge date is at or
	// before cutoff (inclusive, matching the legacy purge).
	ListExpired(ctx context.Context, cutoff time.Time) ([]*Patient, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
	PhysicianSummaries(ctx context.Context) ([]PhysicianSummary, error)
}
