// Package options serves the static reference lists the intake form renders.
// The lists are compiled in: they change with a deploy, not at runtime.
package options

import "sort"

var categories = map[string][]string{
	"symptoms": {
		"Abdominal pain",
		"Back pain",
		"Bleeding",
		"Chest pain",
		"Confusion",
		"Cough",
		"Diarrhea",
		"Dizziness",
		"Fever",
		"Headache",
		"Nausea",
		"Numbness",
		"Rash",
		"Seizure",
		"Shortness of breath",
		"Sore throat",
		"Swelling",
		"Vomiting",
		"Weakness",
	},
	"allergies": {
		"Eggs",
		"Insect stings",
		"Latex",
		"Milk",
		"Peanuts",
		"Penicillin",
		"Pet dander",
		"Pollen",
		"Shellfish",
		"Soy",
		"Sulfa drugs",
		"Tree nuts",
		"Wheat",
	},
	"medications": {
		"Albuterol",
		"Amoxicillin",
		"Aspirin",
		"Atorvastatin",
		"Ibuprofen",
		"Insulin",
		"Levothyroxine",
		"Lisinopril",
		"Metformin",
		"Omeprazole",
		"Prednisone",
		"Warfarin",
	},
	"medical-history": {
		"Asthma",
		"Cancer",
		"Chronic kidney disease",
		"COPD",
		"Diabetes",
		"Heart disease",
		"Hypertension",
		"Immunocompromised",
		"Pregnancy",
		"Previous stroke",
		"Seizure disorder",
	},
	"substance-use": {
		"Alcohol",
		"Cannabis",
		"None",
		"Opioids",
		"Stimulants",
		"Tobacco",
		"Vaping",
	},
	"family-history": {
		"Cancer",
		"Diabetes",
		"Heart disease",
		"Hypertension",
		"Mental illness",
		"Stroke",
	},
	"statuses": {
		"waiting",
		"in-treatment",
		"discharged",
	},
}

// Lookup returns the option list for a category. The returned slice is a
// copy, so callers may reorder it freely.
func Lookup(category string) ([]string, bool) {
	list, ok := categories[category]
	if !ok {
		return nil, false
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, true
}

// Categories returns the known category names in sorted order.
func Categories() []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
