package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakePruner holds timestamped rows and applies the strict-before rule the
// SQL layer uses.
type fakePruner struct {
	dischargeDates []time.Time
	createdDates   []time.Time

	dischargedErr error
	admittedErr   error

	lastCutoff time.Time
}

func (f *fakePruner) DeleteDischargedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	if f.dischargedErr != nil {
		return 0, f.dischargedErr
	}
	var kept []time.Time
	var n int64
	for _, d := range f.dischargeDates {
		if d.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	f.dischargeDates = kept
	return n, nil
}

func (f *fakePruner) DeleteAdmittedCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if f.admittedErr != nil {
		return 0, f.admittedErr
	}
	var kept []time.Time
	var n int64
	for _, d := range f.createdDates {
		if d.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	f.createdDates = kept
	return n, nil
}

func newTestSweeper(pruner *fakePruner, now time.Time) *Sweeper {
	s := NewSweeper(pruner, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestSweepDeletesBeyondWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{
		dischargeDates: []time.Time{
			now.Add(-Window - time.Hour), // expired
			now.Add(-24 * time.Hour),     // recent
		},
		createdDates: []time.Time{
			now.Add(-Window - 48*time.Hour), // long-stay, expired
			now.Add(-time.Hour),             // fresh admission
		},
	}
	s := newTestSweeper(pruner, now)

	d, l, err := s.SweepExpiredEvents(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if d != 1 || l != 1 {
		t.Fatalf("expected 1 discharged + 1 long-stay deleted, got %d/%d", d, l)
	}
	if want := now.Add(-Window); !pruner.lastCutoff.Equal(want) {
		t.Fatalf("cutoff %v, want %v", pruner.lastCutoff, want)
	}
}

func TestSweepKeepsRecordAtExactBoundary(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{
		// Discharged exactly 30 days ago: not strictly before the cutoff,
		// so it survives.
		dischargeDates: []time.Time{now.Add(-Window)},
	}
	s := newTestSweeper(pruner, now)

	d, _, err := s.SweepExpiredEvents(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if d != 0 {
		t.Fatalf("boundary record must be retained, deleted %d", d)
	}
	if len(pruner.dischargeDates) != 1 {
		t.Fatal("boundary record missing after sweep")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{
		dischargeDates: []time.Time{now.Add(-2 * Window)},
		createdDates:   []time.Time{now.Add(-2 * Window)},
	}
	s := newTestSweeper(pruner, now)

	if d, l, err := s.SweepExpiredEvents(context.Background()); err != nil || d != 1 || l != 1 {
		t.Fatalf("first sweep: d=%d l=%d err=%v", d, l, err)
	}
	if d, l, err := s.SweepExpiredEvents(context.Background()); err != nil || d != 0 || l != 0 {
		t.Fatalf("second sweep must be a no-op: d=%d l=%d err=%v", d, l, err)
	}
}

func TestSweepRunsBothPassesOnError(t *testing.T) {
	now := time.Now()
	pruner := &fakePruner{
		dischargedErr: errors.New("deadlock"),
		createdDates:  []time.Time{now.Add(-2 * Window)},
	}
	s := newTestSweeper(pruner, now)

	_, l, err := s.SweepExpiredEvents(context.Background())
	if err == nil {
		t.Fatal("expected error from discharged pass")
	}
	if l != 1 {
		t.Fatalf("admitted pass must still run, deleted %d", l)
	}
}
