package patient

import "sort"

// Rank derives the waiting-room order from a set of active records: priority
// ascending (1 = most urgent), ties broken by earlier TimeEntered, full ties
// keeping store iteration order. It is a pure function — recomputed on every
// read, holding no state — and deterministic for identical input.
func Rank(records []*PatientRecord) []*PatientRecord {
	ranked := make([]*PatientRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority < ranked[j].Priority
		}
		return ranked[i].TimeEntered.Before(ranked[j].TimeEntered)
	})
	return ranked
}
