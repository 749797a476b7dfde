package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates the PostgreSQL-backed patient store.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, first_name, last_name, age, phone, time_entered, date_of_visit,
	temperature, pulse, respiration_rate, blood_pressure,
	symptom_tags, symptom_notes, symptoms,
	allergies, medications, medical_history, substance_use, family_history, notes,
	esi, esi_explanation, priority, status, created_at, updated_at`

func scanPatient(row pgx.Row) (*PatientRecord, error) {
	var p PatientRecord
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Age, &p.Phone, &p.TimeEntered, &p.DateOfVisit,
		&p.Temperature, &p.Pulse, &p.RespirationRate, &p.BloodPressure,
		&p.SymptomTags, &p.SymptomNotes, &p.Symptoms,
		&p.Allergies, &p.Medications, &p.MedicalHistory, &p.SubstanceUse, &p.FamilyHistory, &p.Notes,
		&p.ESILevel, &p.ESIExplanation, &p.Priority, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *PatientRecord) error {
	p.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, age, phone, time_entered, date_of_visit,
			temperature, pulse, respiration_rate, blood_pressure,
			symptom_tags, symptom_notes, symptoms,
			allergies, medications, medical_history, substance_use, family_history, notes,
			esi, esi_explanation, priority, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)`,
		p.ID, p.FirstName, p.LastName, p.Age, p.Phone, p.TimeEntered, p.DateOfVisit,
		p.Temperature, p.Pulse, p.RespirationRate, p.BloodPressure,
		p.SymptomTags, p.SymptomNotes, p.Symptoms,
		p.Allergies, p.Medications, p.MedicalHistory, p.SubstanceUse, p.FamilyHistory, p.Notes,
		p.ESILevel, p.ESIExplanation, p.Priority, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// Update merges the patch in a single UPDATE ... RETURNING statement, which
// is the atomic field-merge the concurrency model requires: two concurrent
// patches to the same record interleave at the row level, never at the
// read-modify-write level.
func (r *repoPG) Update(ctx context.Context, id uuid.UUID, patch *Patch) (*PatientRecord, error) {
	if patch == nil || patch.Empty() {
		return r.GetByID(ctx, id)
	}

	set := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Age != nil {
		add("age", *patch.Age)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.Temperature != nil {
		add("temperature", *patch.Temperature)
	}
	if patch.Pulse != nil {
		add("pulse", *patch.Pulse)
	}
	if patch.RespirationRate != nil {
		add("respiration_rate", *patch.RespirationRate)
	}
	if patch.BloodPressure != nil {
		add("blood_pressure", *patch.BloodPressure)
	}
	if patch.SymptomTags != nil {
		add("symptom_tags", *patch.SymptomTags)
	}
	if patch.SymptomNotes != nil {
		add("symptom_notes", *patch.SymptomNotes)
	}
	if patch.Symptoms != nil {
		add("symptoms", *patch.Symptoms)
	}
	if patch.Allergies != nil {
		add("allergies", *patch.Allergies)
	}
	if patch.Medications != nil {
		add("medications", *patch.Medications)
	}
	if patch.MedicalHistory != nil {
		add("medical_history", *patch.MedicalHistory)
	}
	if patch.SubstanceUse != nil {
		add("substance_use", *patch.SubstanceUse)
	}
	if patch.FamilyHistory != nil {
		add("family_history", *patch.FamilyHistory)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}

	query := `UPDATE patients SET ` + strings.Join(set, ", ") + ` WHERE id = $1 RETURNING ` + patientCols
	p, err := scanPatient(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return p, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListAll(ctx context.Context) ([]*PatientRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*PatientRecord
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return items, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*PatientRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	// Ordered by creation time for reproducible iteration; the queue view
	// applies the priority ordering on top.
	rows, err := r.pool.Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*PatientRecord
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan patient: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate patients: %w", err)
	}
	return items, total, nil
}
