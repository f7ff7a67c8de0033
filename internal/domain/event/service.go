package event

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
	"github.com/tocdoc/tocdoc/internal/platform/notification"
	"github.com/tocdoc/tocdoc/pkg/pagination"
)

// Doctor is the slice of a user record the event service needs.
type Doctor struct {
	ID    uuid.UUID
	Email string
}

// DoctorDirectory resolves doctor ids to records, rejecting non-doctors.
type DoctorDirectory interface {
	Doctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
}

// EventNotifier sends lifecycle emails. Implementations must not fail the
// calling operation: delivery errors are logged, never returned.
type EventNotifier interface {
	Dispatch(ctx context.Context, recipient string, kind notification.EventKind)
}

type Service struct {
	repo     Repository
	tx       Transactor
	doctors  DoctorDirectory
	notifier EventNotifier
}

func NewService(repo Repository, tx Transactor, doctors DoctorDirectory, notifier EventNotifier) *Service {
	return &Service{repo: repo, tx: tx, doctors: doctors, notifier: notifier}
}

// CreateAdmission opens a new ADMITTED episode. Admin only. At most one
// active admission may exist per alias; the check here gives a friendly
// error and the partial unique index closes the concurrent window.
func (s *Service) CreateAdmission(ctx context.Context, id auth.Identity, in AdmissionInput) (*Event, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	if err := validateAdmission(in); err != nil {
		return nil, err
	}

	doc, err := s.doctors.Doctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}

	e := &Event{
		PatientAlias:  strings.TrimSpace(in.PatientAlias),
		Diagnosis:     in.Diagnosis,
		HospitalName:  in.HospitalName,
		Status:        StatusAdmitted,
		AdmissionDate: in.AdmissionDate,
		DoctorID:      doc.ID,
	}
	if in.DOBMonthYear != "" {
		dob := in.DOBMonthYear
		e.DOBMonthYear = &dob
	}

	// The check and the insert share a transaction; the partial unique
	// index backstops anything that still slips through.
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetActiveByAlias(ctx, e.PatientAlias); err == nil {
			return apperr.Conflict("Patient is already admitted. Please discharge before re-admitting.")
		} else if !apperr.IsNotFound(err) {
			return err
		}
		return s.repo.Create(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, doc.Email, notification.KindAdmission)
	return e, nil
}

// Discharge closes the active admission for alias. Admins may discharge any
// patient; doctors only their own.
func (s *Service) Discharge(ctx context.Context, id auth.Identity, alias string, in DischargeInput) (*Event, error) {
	e, err := s.repo.GetActiveByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && e.DoctorID != id.UserID {
		return nil, apperr.ErrForbidden
	}
	if in.DischargeDate.IsZero() {
		return nil, apperr.Validation("dischargeDate", "dischargeDate is required")
	}
	if in.DischargeDate.Before(e.AdmissionDate) {
		return nil, apperr.Validation("dischargeDate", "discharge date cannot be before admission date")
	}

	e.Status = StatusDischarged
	d := in.DischargeDate
	e.DischargeDate = &d
	if in.Diagnosis != "" {
		e.Diagnosis = in.Diagnosis
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	if doc, derr := s.doctors.Doctor(ctx, e.DoctorID); derr == nil {
		s.notifier.Dispatch(ctx, doc.Email, notification.KindDischarge)
	}
	return e, nil
}

// RecordEvent is the combined admit/discharge entry point. Admin only.
func (s *Service) RecordEvent(ctx context.Context, id auth.Identity, in RecordInput) (*Event, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}

	switch in.EventType {
	case TypeAdmit:
		return s.CreateAdmission(ctx, id, AdmissionInput{
			PatientAlias:  in.PatientAlias,
			DOBMonthYear:  in.DOBMonthYear,
			Diagnosis:     in.Diagnosis,
			HospitalName:  in.HospitalName,
			AdmissionDate: in.AdmissionDate,
			DoctorID:      in.DoctorID,
		})
	case TypeDischarge:
		// Older clients sent the discharge date in admission_date.
		when := in.AdmissionDate
		if in.DischargeDate != nil {
			when = *in.DischargeDate
		}
		return s.Discharge(ctx, id, in.PatientAlias, DischargeInput{
			DischargeDate: when,
			Diagnosis:     in.Diagnosis,
		})
	default:
		return nil, apperr.Validation("eventType", "eventType must be ADMIT or DISCHARGE")
	}
}

// UpdateEvent applies a partial update. Non-admin callers may only toggle
// reviewed on their own events, and the body must contain exactly that field.
func (s *Service) UpdateEvent(ctx context.Context, id auth.Identity, eventID uuid.UUID, patch *Patch) (*Event, error) {
	e, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !id.IsAdmin() {
		keys := patch.Keys()
		if len(keys) != 1 || keys[0] != "reviewed" || patch.Reviewed == nil {
			return nil, apperr.ErrForbidden
		}
		if e.DoctorID != id.UserID {
			return nil, apperr.ErrForbidden
		}
		e.Reviewed = *patch.Reviewed
		if err := s.repo.Update(ctx, e); err != nil {
			return nil, err
		}
		return e, nil
	}

	if err := applyAdminPatch(ctx, s.doctors, e, patch); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func applyAdminPatch(ctx context.Context, doctors DoctorDirectory, e *Event, patch *Patch) error {
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return apperr.Validation("status", "status must be ADMITTED or DISCHARGED")
		}
		e.Status = *patch.Status
	}
	if patch.PatientAlias != nil {
		alias := strings.TrimSpace(*patch.PatientAlias)
		if alias == "" {
			return apperr.Validation("patientAlias", "patientAlias cannot be empty")
		}
		e.PatientAlias = alias
	}
	if patch.DOBMonthYear != nil {
		e.DOBMonthYear = patch.DOBMonthYear
	}
	if patch.ClearDOBMonthYear {
		e.DOBMonthYear = nil
	}
	if patch.Diagnosis != nil {
		e.Diagnosis = *patch.Diagnosis
	}
	if patch.HospitalName != nil {
		e.HospitalName = *patch.HospitalName
	}
	if patch.AdmissionDate != nil {
		e.AdmissionDate = *patch.AdmissionDate
	}
	if patch.DischargeDate != nil {
		e.DischargeDate = patch.DischargeDate
	}
	if patch.ClearDischargeDate {
		e.DischargeDate = nil
	}
	if patch.DoctorID != nil {
		doc, err := doctors.Doctor(ctx, *patch.DoctorID)
		if err != nil {
			return err
		}
		e.DoctorID = doc.ID
	}
	if patch.Reviewed != nil {
		e.Reviewed = *patch.Reviewed
	}
	if e.DischargeDate != nil && e.DischargeDate.Before(e.AdmissionDate) {
		return apperr.Validation("dischargeDate", "discharge date cannot be before admission date")
	}
	return nil
}

// DeleteEvent removes an event record. Admin only.
func (s *Service) DeleteEvent(ctx context.Context, id auth.Identity, eventID uuid.UUID) error {
	if !id.IsAdmin() {
		return apperr.ErrForbidden
	}
	return s.repo.Delete(ctx, eventID)
}

// ListEvents returns events visible to the caller, newest admission first.
// Doctors see only their own events; admins see everything.
func (s *Service) ListEvents(ctx context.Context, id auth.Identity, status *Status, page pagination.Params) ([]*Event, error) {
	f := Filter{Status: status, Page: page}
	if !id.IsAdmin() {
		did := id.UserID
		f.DoctorID = &did
	}
	return s.repo.List(ctx, f)
}

// ListAdmittedByDoctor returns a doctor's active admissions. Admin only.
func (s *Service) ListAdmittedByDoctor(ctx context.Context, id auth.Identity, doctorID uuid.UUID) ([]*Event, error) {
	if !id.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListAdmittedByDoctor(ctx, doctorID)
}

func validateAdmission(in AdmissionInput) error {
	if strings.TrimSpace(in.PatientAlias) == "" {
		return apperr.Validation("patientAlias", "patientAlias is required")
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return apperr.Validation("diagnosis", "diagnosis is required")
	}
	if strings.TrimSpace(in.HospitalName) == "" {
		return apperr.Validation("hospitalName", "hospitalName is required")
	}
	if in.AdmissionDate.IsZero() {
		return apperr.Validation("admissionDate", "admissionDate is required")
	}
	if in.AdmissionDate.After(time.Now().Add(24 * time.Hour)) {
		return apperr.Validation("admissionDate", "admission date cannot be in the future")
	}
	if in.DoctorID == uuid.Nil {
		return apperr.Validation("doctorId", "doctorId is required")
	}
	return nil
}
