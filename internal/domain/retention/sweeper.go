package retention

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Window is how long event records are retained. Discharged events age out
// by discharge date, still-admitted events by creation time.
const Window = 30 * 24 * time.Hour

// SweepResult reports how many rows a sweep removed.
type SweepResult struct {
	Discharged int64 `json:"discharged"`
	LongStay   int64 `json:"longStay"`
}

// EventPruner is the slice of the event repository the sweeper needs.
type EventPruner interface {
	DeleteDischargedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAdmittedCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	events EventPruner
	logger zerolog.Logger
	now    func() time.Time
}

func NewSweeper(events EventPruner, logger zerolog.Logger) *Sweeper {
	return &Sweeper{events: events, logger: logger, now: time.Now}
}

// SweepExpiredEvents deletes events older than the retention window.
// Records aged exactly Window are kept: expiry is strictly before the
// cutoff. Both passes run even if one fails, and running twice in a row
// is a no-op the second time.
func (s *Sweeper) SweepExpiredEvents(ctx context.Context) (int64, int64, error) {
	cutoff := s.now().Add(-Window)

	discharged, derr := s.events.DeleteDischargedBefore(ctx, cutoff)
	longStay, aerr := s.events.DeleteAdmittedCreatedBefore(ctx, cutoff)

	if err := errors.Join(derr, aerr); err != nil {
		s.logger.Error().Err(err).Msg("retention sweep failed")
		return discharged, longStay, err
	}

	s.logger.Info().
		Time("cutoff", cutoff).
		Int64("discharged_deleted", discharged).
		Int64("long_stay_deleted", longStay).
		Msg("retention sweep complete")
	return discharged, longStay, nil
}

// Sweep is SweepExpiredEvents packaged as a result struct, for the admin
// endpoint and the CLI.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	d, l, err := s.SweepExpiredEvents(ctx)
	return SweepResult{Discharged: d, LongStay: l}, err
}
