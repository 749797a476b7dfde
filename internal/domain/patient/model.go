package patient

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status values for a patient in the waiting room. Relocation is a hard
// delete, so "relocated" never appears on a stored record; it exists for
// status history on the dashboard side.
const (
	StatusWaiting     = "waiting"
	StatusInTreatment = "in-treatment"
	StatusDischarged  = "discharged"
)

// BPUnavailable is the sentinel stored when either blood pressure component
// is missing or malformed. A record never carries a partial "120/" string.
const BPUnavailable = "N/A"

// ValidStatuses enumerates the accepted status transitions for updates.
var ValidStatuses = map[string]bool{
	StatusWaiting:     true,
	StatusInTreatment: true,
	StatusDischarged:  true,
}

// PatientRecord is the canonical stored patient. ID and TimeEntered are
// assigned at creation and never change; TimeEntered is the tie-break for
// equal-priority records, so it is a full timestamp rather than the wall
// clock "HH:MM" the dashboard renders.
type PatientRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"firstName"`
	LastName    string    `db:"last_name" json:"lastName"`
	Age         *int      `db:"age" json:"age,omitempty"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	TimeEntered time.Time `db:"time_entered" json:"timeEntered"`
	DateOfVisit string    `db:"date_of_visit" json:"dateOfVisit"`

	Temperature     *float64 `db:"temperature" json:"temperature,omitempty"`
	Pulse           *int     `db:"pulse" json:"pulse,omitempty"`
	RespirationRate *int     `db:"respiration_rate" json:"respirationRate,omitempty"`
	BloodPressure   string   `db:"blood_pressure" json:"bloodPressure"`

	SymptomTags  []string `db:"symptom_tags" json:"symptomTags,omitempty"`
	SymptomNotes string   `db:"symptom_notes" json:"symptomNotes,omitempty"`
	// Symptoms is the canonical concatenated text form handed to the
	// classifier, re-derived whenever tags or notes change.
	Symptoms string `db:"symptoms" json:"symptoms"`

	Allergies      []string `db:"allergies" json:"allergies,omitempty"`
	Medications    []string `db:"medications" json:"medications,omitempty"`
	MedicalHistory []string `db:"medical_history" json:"medicalHistory,omitempty"`
	SubstanceUse   []string `db:"substance_use" json:"substanceUse,omitempty"`
	FamilyHistory  []string `db:"family_history" json:"familyHistory,omitempty"`
	Notes          string   `db:"notes" json:"notes,omitempty"`

	ESILevel       int    `db:"esi" json:"esi"`
	ESIExplanation string `db:"esi_explanation" json:"esiExplanation"`
	// Priority defaults to ESILevel at creation and may diverge after a
	// manual override from the dashboard.
	Priority int    `db:"priority" json:"priority"`
	Status   string `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Clone returns a deep copy. The in-memory store hands out clones so callers
// can never mutate stored state without going through Update.
func (p *PatientRecord) Clone() *PatientRecord {
	c := *p
	c.Age = clonePtr(p.Age)
	c.Phone = clonePtr(p.Phone)
	c.Temperature = clonePtr(p.Temperature)
	c.Pulse = clonePtr(p.Pulse)
	c.RespirationRate = clonePtr(p.RespirationRate)
	c.SymptomTags = cloneSlice(p.SymptomTags)
	c.Allergies = cloneSlice(p.Allergies)
	c.Medications = cloneSlice(p.Medications)
	c.MedicalHistory = cloneSlice(p.MedicalHistory)
	c.SubstanceUse = cloneSlice(p.SubstanceUse)
	c.FamilyHistory = cloneSlice(p.FamilyHistory)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// IntakeRequest is the intake payload. Sub-fields whose wire shape is
// polymorphic or historically malformed (blood pressure pair, symptoms
// string-or-object) stay raw and are resolved by the normalizer, which
// degrades instead of rejecting.
type IntakeRequest struct {
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Age            *int            `json:"age,omitempty"`
	Phone          *string         `json:"phone,omitempty"`
	Vitals         *VitalsPayload  `json:"vitals,omitempty"`
	Symptoms       json.RawMessage `json:"symptoms,omitempty"`
	Allergies      []string        `json:"allergies,omitempty"`
	Medications    []string        `json:"medications,omitempty"`
	MedicalHistory []string        `json:"medicalHistory,omitempty"`
	SubstanceUse   []string        `json:"substanceUse,omitempty"`
	FamilyHistory  []string        `json:"familyHistory,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	// Images are base64 payloads (raw or data-URL form) for the classifier.
	Images []string `json:"images,omitempty"`
}

// VitalsPayload mirrors the intake form's vitals block. Absent numerics stay
// nil; defaulting them to 0 would corrupt classification.
type VitalsPayload struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	Pulse           *float64        `json:"pulse,omitempty"`
	RespirationRate *float64        `json:"respirationRate,omitempty"`
	BloodPressure   json.RawMessage `json:"bloodPressure,omitempty"`
}

// UpdateRequest is a partial update. Nil fields are left untouched; when the
// patch touches blood pressure or symptoms the canonical derived forms are
// recomputed rather than left stale.
type UpdateRequest struct {
	Age            *int            `json:"age,omitempty"`
	Phone          *string         `json:"phone,omitempty"`
	Vitals         *VitalsPayload  `json:"vitals,omitempty"`
	Symptoms       json.RawMessage `json:"symptoms,omitempty"`
	Allergies      *[]string       `json:"allergies,omitempty"`
	Medications    *[]string       `json:"medications,omitempty"`
	MedicalHistory *[]string       `json:"medicalHistory,omitempty"`
	SubstanceUse   *[]string       `json:"substanceUse,omitempty"`
	FamilyHistory  *[]string       `json:"familyHistory,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	Status         *string         `json:"status,omitempty"`
	Priority       *int            `json:"priority,omitempty"`
}

// Patch carries final column values for a single atomic store merge. The
// service resolves derived forms before building it, so a Patch never
// contains raw payload shapes. Nil means "leave the column alone".
type Patch struct {
	Age             *int
	Phone           *string
	Temperature     *float64
	Pulse           *int
	RespirationRate *int
	BloodPressure   *string
	SymptomTags     *[]string
	SymptomNotes    *string
	Symptoms        *string
	Allergies       *[]string
	Medications     *[]string
	MedicalHistory  *[]string
	SubstanceUse    *[]string
	FamilyHistory   *[]string
	Notes           *string
	Status          *string
	Priority        *int
}

// Empty reports whether the patch touches no columns.
func (p *Patch) Empty() bool {
	return p.Age == nil && p.Phone == nil &&
		p.Temperature == nil && p.Pulse == nil && p.RespirationRate == nil &&
		p.BloodPressure == nil &&
		p.SymptomTags == nil && p.SymptomNotes == nil && p.Symptoms == nil &&
		p.Allergies == nil && p.Medications == nil && p.MedicalHistory == nil &&
		p.SubstanceUse == nil && p.FamilyHistory == nil && p.Notes == nil &&
		p.Status == nil && p.Priority == nil
}
