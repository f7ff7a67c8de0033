package patient

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
	"github.com/tocdoc/tocdoc/internal/platform/notification"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: map[uuid.UUID]*Patient{}}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]*Patient, error) {
	sevenDaysAgo := time.Now().Add(-followupWindow)
	var out []*Patient
	for _, p := range m.patients {
		if f.PhysicianID != nil && p.PhysicianID != *f.PhysicianID {
			continue
		}
		switch f.Kind {
		case FilterAdmitted:
			if p.Discharge != nil {
				continue
			}
		case FilterDischarged:
			if p.Discharge == nil {
				continue
			}
		case FilterFollowup:
			if p.Discharge == nil || p.Discharge.Before(sevenDaysAgo) {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepo) ListExpired(_ context.Context, cutoff time.Time) ([]*Patient, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.Discharge != nil && !p.Discharge.After(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, p := range m.patients {
		if p.Discharge != nil && !p.Discharge.After(cutoff) {
			delete(m.patients, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) PhysicianSummaries(_ context.Context) ([]PhysicianSummary, error) {
	counts := map[uuid.UUID]int{}
	for _, p := range m.patients {
		counts[p.PhysicianID]++
	}
	var out []PhysicianSummary
	for id, n := range counts {
		out = append(out, PhysicianSummary{ID: id, PatientCount: n})
	}
	return out, nil
}

type mockDirectory struct {
	physicians map[string]*Physician
}

func (m *mockDirectory) DoctorByEmail(_ context.Context, email string) (*Physician, error) {
	p, ok := m.physicians[email]
	if !ok {
		return nil, apperr.Validation("physicianEmail", "does not reference a doctor")
	}
	return p, nil
}

func testFixture(t *testing.T) (*Service, *mockRepo, *Physician, *notification.MockEmailSender) {
	t.Helper()
	repo := newMockRepo()
	phys := &Physician{ID: uuid.New(), Email: "dr.lee@tocdoc.com"}
	dir := &mockDirectory{physicians: map[string]*Physician{phys.Email: phys}}
	sender := &notification.MockEmailSender{}
	notifier := notification.NewNotifier(sender, "https://portal.tocdoc.com/signin", zerolog.Nop())
	return NewService(repo, dir, notifier), repo, phys, sender
}

func adminIdentity() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Email: "admin@tocdoc.com", Role: auth.RoleAdmin}
}

func validInput() Input {
	return Input{
		Name:           "John Doe",
		DOB:            "1961-04-12",
		Facility:       "St. Mary's",
		Diagnosis:      "CHF exacerbation",
		Admission:      time.Now().Add(-72 * time.Hour).Format(time.RFC3339),
		PhysicianEmail: "dr.lee@tocdoc.com",
	}
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _, phys, _ := testFixture(t)

	doctor := auth.Identity{UserID: phys.ID, Email: phys.Email, Role: auth.RoleDoctor}
	_, err := svc.Create(context.Background(), doctor, validInput())
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateSendsAdmissionOrDischargeEmail(t *testing.T) {
	svc, _, _, sender := testFixture(t)
	ctx := context.Background()
	admin := adminIdentity()

	if _, err := svc.Create(ctx, admin, validInput()); err != nil {
		t.Fatalf("create admitted: %v", err)
	}

	in := validInput()
	in.Name = "Jane Roe"
	in.Discharge = time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	if _, err := svc.Create(ctx, admin, in); err != nil {
		t.Fatalf("create discharged: %v", err)
	}

	calls := sender.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Subject, "admission") {
		t.Fatalf("first email should be admission flavored: %q", calls[0].Subject)
	}
	if !strings.Contains(calls[1].Subject, "discharge") {
		t.Fatalf("second email should be discharge flavored: %q", calls[1].Subject)
	}
}

func TestCreateRejectsUnknownPhysician(t *testing.T) {
	svc, _, _, _ := testFixture(t)

	in := validInput()
	in.PhysicianEmail = "nobody@tocdoc.com"
	_, err := svc.Create(context.Background(), adminIdentity(), in)
	if !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestListScopedToPhysician(t *testing.T) {
	svc, repo, phys, _ := testFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, adminIdentity(), validInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// A record on someone else's panel.
	otherID := uuid.New()
	repo.Create(ctx, &Patient{
		Name: "Jane Roe", DOB: time.Now().AddDate(-60, 0, 0), Facility: "General",
		Diagnosis: "pneumonia", Admission: time.Now().Add(-24 * time.Hour), PhysicianID: otherID,
	})

	doctor := auth.Identity{UserID: phys.ID, Email: phys.Email, Role: auth.RoleDoctor}
	mine, err := svc.List(ctx, doctor, FilterAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].PhysicianID != phys.ID {
		t.Fatalf("doctor must only see own panel, got %d", len(mine))
	}

	all, err := svc.List(ctx, adminIdentity(), "")
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin must see all records, got %d", len(all))
	}
}

func TestListRejectsUnknownFilter(t *testing.T) {
	svc, _, _, _ := testFixture(t)

	_, err := svc.List(context.Background(), adminIdentity(), FilterKind("archived"))
	if !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBatchCreatePartialFailure(t *testing.T) {
	svc, repo, _, _ := testFixture(t)

	good := validInput()

	missing := validInput()
	missing.Name = ""
	missing.Diagnosis = ""

	badPhysician := validInput()
	badPhysician.Name = "Jane Roe"
	badPhysician.PhysicianEmail = "nobody@tocdoc.com"

	badDates := validInput()
	badDates.Name = "Early Out"
	badDates.Discharge = time.Now().Add(-96 * time.Hour).Format(time.RFC3339) // before admission

	res, err := svc.BatchCreate(context.Background(), adminIdentity(), []Input{good, missing, badPhysician, badDates})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Created != 1 || len(res.Patients) != 1 {
		t.Fatalf("expected 1 created, got %d", res.Created)
	}
	if len(res.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(res.Errors), res.Errors)
	}
	if !strings.Contains(res.Errors[0], "Unknown") {
		t.Fatalf("missing-fields error should name Unknown patient: %q", res.Errors[0])
	}
	if !strings.Contains(res.Errors[1], "nobody@tocdoc.com") {
		t.Fatalf("physician error should name the email: %q", res.Errors[1])
	}
	if !strings.Contains(res.Errors[2], "Early Out") {
		t.Fatalf("date error should name the patient: %q", res.Errors[2])
	}
	if len(repo.patients) != 1 {
		t.Fatalf("only the valid record should persist, got %d", len(repo.patients))
	}
}

func TestBatchCreateFutureDischargeStoredAsNull(t *testing.T) {
	svc, _, _, _ := testFixture(t)

	in := validInput()
	in.Discharge = time.Now().Add(72 * time.Hour).Format(time.RFC3339)

	res, err := svc.BatchCreate(context.Background(), adminIdentity(), []Input{in})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("expected record created, errors: %v", res.Errors)
	}
	if res.Patients[0].Discharge != nil {
		t.Fatal("future discharge date must be stored as null")
	}
}

func TestPurgeExpiredInclusiveBoundary(t *testing.T) {
	svc, repo, phys, _ := testFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	atBoundary := now.Add(-retentionWindow) // exactly 30 days: purged (<=)
	recent := now.Add(-24 * time.Hour)
	repo.Create(ctx, &Patient{
		Name: "Boundary", DOB: now.AddDate(-70, 0, 0), Facility: "General",
		Diagnosis: "CHF", Admission: atBoundary.Add(-time.Hour),
		Discharge: &atBoundary, PhysicianID: phys.ID,
	})
	repo.Create(ctx, &Patient{
		Name: "Recent", DOB: now.AddDate(-50, 0, 0), Facility: "General",
		Diagnosis: "CHF", Admission: recent.Add(-time.Hour),
		Discharge: &recent, PhysicianID: phys.ID,
	})

	res, err := svc.PurgeExpired(ctx, adminIdentity())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if res.Deleted != 1 {
		t.Fatalf("expected exactly-30-day record purged, deleted %d", res.Deleted)
	}
	if len(res.ExpiredPatients) != 1 || res.ExpiredPatients[0].Name != "Boundary" {
		t.Fatalf("expected Boundary in expired list, got %+v", res.ExpiredPatients)
	}
	if len(repo.patients) != 1 {
		t.Fatalf("recent record must survive, got %d remaining", len(repo.patients))
	}
}

func TestPurgeRequiresAdmin(t *testing.T) {
	svc, _, phys, _ := testFixture(t)

	doctor := auth.Identity{UserID: phys.ID, Email: phys.Email, Role: auth.RoleDoctor}
	if _, err := svc.PurgeExpired(context.Background(), doctor); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	d2 := now.Add(-2 * 24 * time.Hour)
	d10 := now.Add(-10 * 24 * time.Hour)
	d40 := now.Add(-40 * 24 * time.Hour)

	patients := []*Patient{
		{Name: "Admitted A"},
		{Name: "Admitted B"},
		{Name: "Fresh discharge", Discharge: &d2},
		{Name: "Older discharge", Discharge: &d10},
		{Name: "Expired", Discharge: &d40},
	}

	st := ComputeStats(patients, now)
	if st.Total != 5 {
		t.Fatalf("total = %d", st.Total)
	}
	if st.CurrentlyAdmitted != 2 {
		t.Fatalf("currentlyAdmitted = %d", st.CurrentlyAdmitted)
	}
	if st.RecentlyDischarged != 1 {
		t.Fatalf("recentlyDischarged = %d", st.RecentlyDischarged)
	}
	if st.NeedingDeletion != 1 {
		t.Fatalf("needingDeletion = %d", st.NeedingDeletion)
	}
}

func TestOverviewBundlesStatsAndPhysicians(t *testing.T) {
	svc, _, _, _ := testFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, adminIdentity(), validInput()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := svc.Overview(ctx, adminIdentity())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if res.Stats.Total != 1 || res.Stats.CurrentlyAdmitted != 1 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if len(res.Patients) != 1 || len(res.Physicians) != 1 {
		t.Fatalf("expected 1 patient and 1 physician, got %d/%d", len(res.Patients), len(res.Physicians))
	}
	if res.Physicians[0].PatientCount != 1 {
		t.Fatalf("physician patientCount = %d", res.Physicians[0].PatientCount)
	}
}
