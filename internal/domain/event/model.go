package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tocdoc/tocdoc/pkg/pagination"
)

// Status is the lifecycle state of an admission episode.
type Status string

const (
	StatusAdmitted   Status = "ADMITTED"
	StatusDischarged Status = "DISCHARGED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusAdmitted || s == StatusDischarged
}

// Event maps to the event table: one admit-to-discharge episode for a
// de-identified patient alias.
type Event struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientAlias  string     `db:"patient_alias" json:"patientAlias"`
	DOBMonthYear  *string    `db:"dob_month_year" json:"dobMonthYear,omitempty"`
	Diagnosis     string     `db:"diagnosis" json:"diagnosis"`
	HospitalName  string     `db:"hospital_name" json:"hospitalName"`
	Status        Status     `db:"status" json:"status"`
	AdmissionDate time.Time  `db:"admission_date" json:"admissionDate"`
	DischargeDate *time.Time `db:"discharge_date" json:"dischargeDate,omitempty"`
	Reviewed      bool       `db:"reviewed" json:"reviewed"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctorId"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// AdmissionInput is the payload for creating a new admission.
type AdmissionInput struct {
	PatientAlias  string    `json:"patientAlias"`
	DOBMonthYear  string    `json:"dobMonthYear"`
	Diagnosis     string    `json:"diagnosis"`
	HospitalName  string    `json:"hospitalName"`
	AdmissionDate time.Time `json:"admissionDate"`
	DoctorID      uuid.UUID `json:"doctorId"`
}

// EventType selects the branch of the combined admit/discharge endpoint.
type EventType string

const (
	TypeAdmit     EventType = "ADMIT"
	TypeDischarge EventType = "DISCHARGE"
)

// RecordInput is the payload of the combined admit/discharge endpoint. For
// discharges a dedicated DischargeDate field is preferred; the legacy
// client reused AdmissionDate for that purpose, so it remains the fallback.
type RecordInput struct {
	EventType     EventType  `json:"eventType"`
	PatientAlias  string     `json:"patientAlias"`
	DOBMonthYear  string     `json:"dobMonthYear"`
	Diagnosis     string     `json:"diagnosis"`
	HospitalName  string     `json:"hospitalName"`
	AdmissionDate time.Time  `json:"admissionDate"`
	DischargeDate *time.Time `json:"dischargeDate"`
	DoctorID      uuid.UUID  `json:"doctorId"`
}

// DischargeInput is the payload for discharging an active admission.
type DischargeInput struct {
	DischargeDate time.Time `json:"dischargeDate"`
	Diagnosis     string    `json:"diagnosis"`
}

// Patch is a partial update of an event. nil means "leave untouched"; the
// Clear flags allow an admin to explicitly null a nullable field.
type Patch struct {
	Status             *Status    `json:"status"`
	PatientAlias       *string    `json:"patientAlias"`
	DOBMonthYear       *string    `json:"dobMonthYear"`
	Diagnosis          *string    `json:"diagnosis"`
	HospitalName       *string    `json:"hospitalName"`
	AdmissionDate      *time.Time `json:"admissionDate"`
	DischargeDate      *time.Time `json:"dischargeDate"`
	DoctorID           *uuid.UUID `json:"doctorId"`
	Reviewed           *bool      `json:"reviewed"`
	ClearDischargeDate bool       `json:"clearDischargeDate"`
	ClearDOBMonthYear  bool       `json:"clearDobMonthYear"`

	// keys holds the JSON field names present in the request body, used to
	// enforce the reviewed-only rule for non-admin callers.
	keys []string
}

// Keys returns the JSON field names present in the original request body.
func (p *Patch) Keys() []string { return p.keys }

// ParsePatch decodes a patch body, recording which fields were present.
func ParsePatch(body []byte) (*Patch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid patch body: %w", err)
	}

	var p Patch
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("invalid patch body: %w", err)
	}

	p.keys = make([]string, 0, len(raw))
	for k := range raw {
		p.keys = append(p.keys, k)
	}
	return &p, nil
}

// Filter narrows a ListEvents query.
type Filter struct {
	DoctorID *uuid.UUID
	Status   *Status
	Page     pagination.Params
}
