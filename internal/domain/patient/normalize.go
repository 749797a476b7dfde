package patient

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vitals is the canonical vitals bundle produced by normalization.
type Vitals struct {
	Temperature     *float64
	Pulse           *int
	RespirationRate *int
	BloodPressure   string
}

// NormalizeVitals converts the loosely-typed vitals payload into the
// canonical bundle. It never fails: malformed sub-fields degrade to their
// sentinel/absent forms instead of propagating.
func NormalizeVitals(v *VitalsPayload) Vitals {
	out := Vitals{BloodPressure: BPUnavailable}
	if v == nil {
		return out
	}
	out.Temperature = v.Temperature
	out.Pulse = roundToInt(v.Pulse)
	out.RespirationRate = roundToInt(v.RespirationRate)
	out.BloodPressure = NormalizeBloodPressure(v.BloodPressure)
	return out
}

func roundToInt(f *float64) *int {
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	return &n
}

type bloodPressurePair struct {
	Systolic  *json.Number `json:"systolic"`
	Diastolic *json.Number `json:"diastolic"`
}

// NormalizeBloodPressure derives the canonical "S/D" form from a raw
// {systolic, diastolic} pair. Missing payload, a missing component, or any
// decode failure resolves to the "N/A" sentinel — never a partial string.
func NormalizeBloodPressure(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return BPUnavailable
	}

	var pair bloodPressurePair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return BPUnavailable
	}
	if pair.Systolic == nil || pair.Diastolic == nil {
		return BPUnavailable
	}

	sys, err := pair.Systolic.Float64()
	if err != nil {
		return BPUnavailable
	}
	dia, err := pair.Diastolic.Float64()
	if err != nil {
		return BPUnavailable
	}

	return FormatBloodPressure(sys, dia)
}

// FormatBloodPressure renders the canonical "S/D" string. Whole-number
// readings drop their decimal part ("120/80", not "120.0/80.0").
func FormatBloodPressure(systolic, diastolic float64) string {
	return fmt.Sprintf("%s/%s",
		strconv.FormatFloat(systolic, 'f', -1, 64),
		strconv.FormatFloat(diastolic, 'f', -1, 64))
}

type symptomsObject struct {
	Selected []string `json:"selected"`
	Notes    string   `json:"notes"`
}

// NormalizeSymptoms resolves the polymorphic symptoms payload: either a
// plain string (passed through as the canonical text) or a structured
// {selected, notes} object. Missing or malformed input yields empty values,
// never an error.
func NormalizeSymptoms(raw json.RawMessage) (tags []string, notes string, text string) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, "", ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return nil, "", plain
	}

	var obj symptomsObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, "", ""
	}
	return obj.Selected, obj.Notes, SymptomText(obj.Selected, obj.Notes)
}

// SymptomText builds the canonical concatenated symptom text handed to the
// classifier: tags joined with ", ", with free-text notes appended as
// ". Additional notes: …".
func SymptomText(selected []string, notes string) string {
	text := strings.Join(selected, ", ")
	if notes != "" {
		text += fmt.Sprintf(". Additional notes: %s", notes)
	}
	return text
}
