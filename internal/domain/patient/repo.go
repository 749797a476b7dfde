package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned for operations on an unknown patient id, so the
// dashboard can distinguish "already handled elsewhere" from a transient
// storage failure.
var ErrNotFound = errors.New("patient not found")

// Repository is the durable keyed record store the triage core relies on.
// Implementations must provide atomic single-record operations; they are the
// only synchronization primitive the core uses.
type Repository interface {
	// Create assigns the record's identity and persists it.
	Create(ctx context.Context, p *PatientRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error)
	// Update merges the patch into the record as one atomic operation and
	// returns the updated record.
	Update(ctx context.Context, id uuid.UUID, patch *Patch) (*PatientRecord, error)
	// Delete removes the record entirely ("relocate").
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns active records unordered; ordering is the queue view's
	// responsibility.
	List(ctx context.Context, limit, offset int) ([]*PatientRecord, int, error)
	// ListAll returns every active record. The queue view ranks the full
	// set before any windowing; a paginated read cannot feed it.
	ListAll(ctx context.Context) ([]*PatientRecord, error)
}
