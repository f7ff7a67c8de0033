package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
	"github.com/tocdoc/tocdoc/internal/platform/notification"
)

// Physician is the slice of a user record the patient flows need.
type Physician struct {
	ID    uuid.UUID
	Email string
}

// PhysicianDirectory resolves physicians by email, rejecting non-doctors.
type PhysicianDirectory interface {
	DoctorByEmail(ctx context.Context, email string) (*Physician, error)
}

// EventNotifier sends lifecycle emails; delivery failures never surface.
type EventNotifier interface {
	Dispatch(ctx context.Context, recipient string, kind notification.EventKind)
}

type Service struct {
	repo       Repository
	physicians PhysicianDirectory
	notifier   EventNotifier
	now        func() time.Time
}

func NewService(repo Repository, physicians PhysicianDirectory, notifier EventNotifier) *Service {
	return &Service{repo: repo, physicians: physicians, notifier: notifier, now: time.Now}
}

// retentionWindow mirrors the event sweeper: legacy records expire 30 days
// after discharge, but inclusively (<=), as the original purge did.
const retentionWindow = 30 * 24 * time.Hour

const followupWindow = 7 * 24 * time.Hour

// List returns patient records visible to the caller. Doctors see their own
// panel; admins see everything.
func (s *Service) List(ctx context.Context, id auth.Identity, kind FilterKind) ([]*Patient, error) {
	if kind == "" {
		kind = FilterAll
	}
	if !kind.Valid() {
		return nil, apperr.Validation("filter", "filter must be all, admitted, discharged or followup")
	}
	f := Filter{Kind: kind}
	if !id.IsAdmin() {
		pid := id.UserID
		f.PhysicianID = &pid
	}
	return s.repo.List(ctx, f)
}

// Create adds a single patient record. Admin only. The physician is
// referenced by email; a notification goes out on creation, admission or
// discharge flavored depending on whether a discharge date is present.
func (s *Service) Create(ctx context.Context, id auth.Identity, in Input) (*Patient, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	p, phys, err := s.buildPatient(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	p.PhysicianEmail = phys.Email

	kind := notification.KindAdmission
	if p.Discharge != nil {
		kind = notification.KindDischarge
	}
	s.notifier.Dispatch(ctx, phys.Email, kind)
	return p, nil
}

// BatchCreate imports many records, tolerating per-record failures. Errors
// are reported as messages naming the patient; valid records still land.
func (s *Service) BatchCreate(ctx context.Context, id auth.Identity, inputs []Input) (*BatchResult, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}

	res := &BatchResult{Patients: []*Patient{}}
	for _, in := range inputs {
		p, phys, err := s.buildPatient(ctx, in)
		if err != nil {
			res.Errors = append(res.Errors, batchErrorMessage(in, err))
			continue
		}
		if err := s.repo.Create(ctx, p); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to create patient %s: %s", nameOrUnknown(in.Name), err))
			continue
		}
		p.PhysicianEmail = phys.Email
		res.Patients = append(res.Patients, p)

		kind := notification.KindAdmission
		if p.Discharge != nil {
			kind = notification.KindDischarge
		}
		s.notifier.Dispatch(ctx, phys.Email, kind)
	}
	res.Created = len(res.Patients)
	return res, nil
}

// buildPatient validates one intake record and resolves its physician.
func (s *Service) buildPatient(ctx context.Context, in Input) (*Patient, *Physician, error) {
	if in.Name == "" || in.DOB == "" || in.Facility == "" || in.Diagnosis == "" ||
		in.Admission == "" || in.PhysicianEmail == "" {
		return nil, nil, apperr.Validation("patient", "name, dob, facility, diagnosis, admission and physicianEmail are required")
	}

	dob, err := parseDate(in.DOB)
	if err != nil {
		return nil, nil, apperr.Validation("dob", "invalid date of birth")
	}
	admission, err := parseDate(in.Admission)
	if err != nil {
		return nil, nil, apperr.Validation("admission", "invalid admission date")
	}
	now := s.now()
	if admission.After(now) {
		return nil, nil, apperr.Validation("admission", "admission date cannot be in the future")
	}

	var discharge *time.Time
	if in.Discharge != "" {
		d, err := parseDate(in.Discharge)
		if err != nil {
			return nil, nil, apperr.Validation("discharge", "invalid discharge date")
		}
		if !d.After(admission) {
			return nil, nil, apperr.Validation("discharge", "discharge date must be after admission date")
		}
		// Future discharge dates are treated as "not discharged yet".
		if !d.After(now) {
			discharge = &d
		}
	}

	phys, err := s.physicians.DoctorByEmail(ctx, in.PhysicianEmail)
	if err != nil {
		return nil, nil, err
	}

	p := &Patient{
		Name:        strings.TrimSpace(in.Name),
		DOB:         dob,
		Facility:    strings.TrimSpace(in.Facility),
		Diagnosis:   strings.TrimSpace(in.Diagnosis),
		Admission:   admission,
		Discharge:   discharge,
		PhysicianID: phys.ID,
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		p.Notes = &n
	}
	return p, phys, nil
}

// ListExpired returns records past the legacy retention window.
func (s *Service) ListExpired(ctx context.Context) ([]*Patient, error) {
	return s.repo.ListExpired(ctx, s.now().Add(-retentionWindow))
}

// PurgeExpired deletes records past the legacy retention window and reports
// what was removed. Admin only.
func (s *Service) PurgeExpired(ctx context.Context, id auth.Identity) (*PurgeResult, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	cutoff := s.now().Add(-retentionWindow)

	expired, err := s.repo.ListExpired(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if expired == nil {
		expired = []*Patient{}
	}
	return &PurgeResult{Deleted: deleted, ExpiredPatients: expired}, nil
}

// Overview is the admin dashboard bundle: every record, aggregate stats and
// a per-physician patient count.
func (s *Service) Overview(ctx context.Context, id auth.Identity) (*OverviewResult, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	patients, err := s.repo.List(ctx, Filter{Kind: FilterAll})
	if err != nil {
		return nil, err
	}
	physicians, err := s.repo.PhysicianSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	if physicians == nil {
		physicians = []PhysicianSummary{}
	}
	return &OverviewResult{
		Patients:   patients,
		Stats:      ComputeStats(patients, s.now()),
		Physicians: physicians,
	}, nil
}

// ComputeStats aggregates the dashboard counters for a snapshot of records.
func ComputeStats(patients []*Patient, now time.Time) Stats {
	st := Stats{Total: len(patients)}
	sevenDaysAgo := now.Add(-followupWindow)
	thirtyDaysAgo := now.Add(-retentionWindow)
	for _, p := range patients {
		if p.Discharge == nil {
			st.CurrentlyAdmitted++
			continue
		}
		if !p.Discharge.Before(sevenDaysAgo) {
			st.RecentlyDischarged++
		}
		if !p.Discharge.After(thirtyDaysAgo) {
			st.NeedingDeletion++
		}
	}
	return st
}

func batchErrorMessage(in Input, err error) string {
	name := nameOrUnknown(in.Name)
	if verr, ok := err.(*apperr.ValidationError); ok {
		switch verr.Field {
		case "patient":
			return fmt.Sprintf("Missing required fields for patient %s. Please fill out all fields: name, date of birth, facility, diagnosis, admission date, and physician email.", name)
		case "dob":
			return fmt.Sprintf("Invalid date of birth for patient %s. Please enter a valid date.", name)
		case "admission":
			if strings.Contains(verr.Msg, "future") {
				return fmt.Sprintf("Admission date cannot be in the future for patient %s.", name)
			}
			return fmt.Sprintf("Invalid admission date for patient %s. Please enter a valid date.", name)
		case "discharge":
			if strings.Contains(verr.Msg, "after admission") {
				return fmt.Sprintf("Discharge date must be after admission date for patient %s.", name)
			}
			return fmt.Sprintf("Invalid discharge date for patient %s. Please enter a valid date or leave blank.", name)
		case "physicianEmail":
			return fmt.Sprintf("Physician not found: %s. Please select a valid physician.", in.PhysicianEmail)
		}
	}
	if apperr.IsNotFound(err) {
		return fmt.Sprintf("Physician not found: %s. Please select a valid physician.", in.PhysicianEmail)
	}
	return fmt.Sprintf("Failed to create patient %s: %s", name, err)
}

func nameOrUnknown(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown"
	}
	return name
}

// parseDate accepts RFC 3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
