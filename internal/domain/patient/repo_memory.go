package patient

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/edtriage/edtriage/pkg/pagination"
)

// repoMemory is the in-process fallback store, selected at startup when the
// database probe fails. Records are kept in insertion order so listing is
// deterministic, matching the durable store's created_at ordering.
type repoMemory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*PatientRecord
	order   []uuid.UUID
}

// NewRepoMemory creates the in-memory patient store.
func NewRepoMemory() Repository {
	return &repoMemory{records: make(map[uuid.UUID]*PatientRecord)}
}

func (r *repoMemory) Create(_ context.Context, p *PatientRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = uuid.New()
	r.records[p.ID] = p.Clone()
	r.order = append(r.order, p.ID)
	return nil
}

func (r *repoMemory) GetByID(_ context.Context, id uuid.UUID) (*PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// Update merges the patch under the write lock, which gives the same
// single-record atomicity the durable store's one-statement merge provides.
func (r *repoMemory) Update(_ context.Context, id uuid.UUID, patch *Patch) (*PatientRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch == nil || patch.Empty() {
		return p.Clone(), nil
	}

	if patch.Age != nil {
		p.Age = clonePtr(patch.Age)
	}
	if patch.Phone != nil {
		p.Phone = clonePtr(patch.Phone)
	}
	if patch.Temperature != nil {
		p.Temperature = clonePtr(patch.Temperature)
	}
	if patch.Pulse != nil {
		p.Pulse = clonePtr(patch.Pulse)
	}
	if patch.RespirationRate != nil {
		p.RespirationRate = clonePtr(patch.RespirationRate)
	}
	if patch.BloodPressure != nil {
		p.BloodPressure = *patch.BloodPressure
	}
	if patch.SymptomTags != nil {
		p.SymptomTags = cloneSlice(*patch.SymptomTags)
	}
	if patch.SymptomNotes != nil {
		p.SymptomNotes = *patch.SymptomNotes
	}
	if patch.Symptoms != nil {
		p.Symptoms = *patch.Symptoms
	}
	if patch.Allergies != nil {
		p.Allergies = cloneSlice(*patch.Allergies)
	}
	if patch.Medications != nil {
		p.Medications = cloneSlice(*patch.Medications)
	}
	if patch.MedicalHistory != nil {
		p.MedicalHistory = cloneSlice(*patch.MedicalHistory)
	}
	if patch.SubstanceUse != nil {
		p.SubstanceUse = cloneSlice(*patch.SubstanceUse)
	}
	if patch.FamilyHistory != nil {
		p.FamilyHistory = cloneSlice(*patch.FamilyHistory)
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	p.UpdatedAt = nowUTC()

	return p.Clone(), nil
}

func (r *repoMemory) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *repoMemory) ListAll(_ context.Context) ([]*PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*PatientRecord, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.records[id].Clone())
	}
	return items, nil
}

func (r *repoMemory) List(_ context.Context, limit, offset int) ([]*PatientRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.order)
	lo, hi := (pagination.Params{Limit: limit, Offset: offset}).Bounds(total)

	items := make([]*PatientRecord, 0, hi-lo)
	for _, id := range r.order[lo:hi] {
		items = append(items, r.records[id].Clone())
	}
	return items, total, nil
}
