package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a legacy transition-of-care record, kept alongside the event
// lifecycle for the older intake flows. PhysicianEmail is joined from
// app_user on read.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	DOB            time.Time  `db:"dob" json:"dob"`
	Facility       string     `db:"facility" json:"facility"`
	Diagnosis      string     `db:"diagnosis" json:"diagnosis"`
	Admission      time.Time  `db:"admission" json:"admission"`
	Discharge      *time.Time `db:"discharge" json:"discharge"`
	Notes          *string    `db:"notes" json:"notes"`
	PhysicianID    uuid.UUID  `db:"physician_id" json:"physicianId"`
	PhysicianEmail string     `db:"physician_email" json:"physicianEmail"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// Input is the intake payload. Dates arrive as strings so each record can
// be validated individually during batch import.
type Input struct {
	Name           string `json:"name"`
	DOB            string `json:"dob"`
	Facility       string `json:"facility"`
	Diagnosis      string `json:"diagnosis"`
	Admission      string `json:"admission"`
	Discharge      string `json:"discharge"`
	Notes          string `json:"notes"`
	PhysicianEmail string `json:"physicianEmail"`
}

// BatchResult reports a partial-failure-tolerant import.
type BatchResult struct {
	Created  int        `json:"created"`
	Patients []*Patient `json:"patients"`
	Errors   []string   `json:"errors,omitempty"`
}

// Stats is the admin dashboard aggregation.
type Stats struct {
	Total              int `json:"total"`
	CurrentlyAdmitted  int `json:"currentlyAdmitted"`
	RecentlyDischarged int `json:"recentlyDischarged"`
	NeedingDeletion    int `json:"needingDeletion"`
}

// PhysicianSummary is one row of the admin overview's doctor roster.
type PhysicianSummary struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PatientCount int       `json:"patientCount"`
}

// OverviewResult is the admin dashboard bundle.
type OverviewResult struct {
	Patients   []*Patient         `json:"patients"`
	Stats      Stats              `json:"stats"`
	Physicians []PhysicianSummary `json:"physicians"`
}

// PurgeResult reports a retention purge of legacy records.
type PurgeResult struct {
	Deleted         int64      `json:"deleted"`
	ExpiredPatients []*Patient `json:"expiredPatients"`
}

// FilterKind narrows the patient listing.
type FilterKind string

const (
	FilterAll        FilterKind = "all"
	FilterAdmitted   FilterKind = "admitted"
	FilterDischarged FilterKind = "discharged"
	FilterFollowup   FilterKind = "followup"
)

// Valid reports whether k is a known filter.
func (k FilterKind) Valid() bool {
	switch k {
	case FilterAll, FilterAdmitted, FilterDischarged, FilterFollowup:
		return true
	}
	return false
}

// Filter scopes a listing. A nil PhysicianID means no physician scoping.
type Filter struct {
	PhysicianID *uuid.UUID
	Kind        FilterKind
}
