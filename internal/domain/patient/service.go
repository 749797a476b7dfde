package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edtriage/edtriage/internal/platform/classify"
	"github.com/edtriage/edtriage/pkg/pagination"
)

// ErrInvalidInput marks client errors: the request is rejected before any
// side effect.
var ErrInvalidInput = errors.New("invalid request")

// AcuityClassifier is the classification capability the orchestrator drives.
// By contract it never fails: degraded classifications come back as the
// fallback result, not as an error.
type AcuityClassifier interface {
	Classify(ctx context.Context, in classify.Input) classify.Result
}

// Service is the intake orchestrator: it drives normalization,
// classification, and storage as one logical unit and owns the remaining
// record operations.
type Service struct {
	repo       Repository
	classifier AcuityClassifier
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, classifier AcuityClassifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, classifier: classifier, logger: logger, now: nowUTC}
}

func nowUTC() time.Time { return time.Now().UTC() }

// Intake runs the full flow: validate → normalize → classify → store.
// Normalization and classification cannot fail (both degrade internally);
// only input validation and the storage write can. A failed write discards
// the classification result — an unpersisted acuity never reaches the
// waiting queue, so it must not be reported as success.
func (s *Service) Intake(ctx context.Context, req *IntakeRequest) (*PatientRecord, error) {
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, fmt.Errorf("%w: firstName and lastName are required", ErrInvalidInput)
	}

	vitals := NormalizeVitals(req.Vitals)
	tags, symptomNotes, symptomText := NormalizeSymptoms(req.Symptoms)
	images := classify.DecodeImages(req.Images, s.logger)

	result := s.classifier.Classify(ctx, classify.Input{
		Temperature:     vitals.Temperature,
		Pulse:           vitals.Pulse,
		RespirationRate: vitals.RespirationRate,
		BloodPressure:   vitals.BloodPressure,
		Symptoms:        symptomText,
		Images:          images,
	})
	if result.Degraded {
		s.logger.Warn().
			Str("patient", req.FirstName+" "+req.LastName).
			Msg("intake proceeding with degraded classification")
	}

	now := s.now()
	rec := &PatientRecord{
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Age:             req.Age,
		Phone:           req.Phone,
		TimeEntered:     now,
		DateOfVisit:     now.Format("2006-01-02"),
		Temperature:     vitals.Temperature,
		Pulse:           vitals.Pulse,
		RespirationRate: vitals.RespirationRate,
		BloodPressure:   vitals.BloodPressure,
		SymptomTags:     tags,
		SymptomNotes:    symptomNotes,
		Symptoms:        symptomText,
		Allergies:       req.Allergies,
		Medications:     req.Medications,
		MedicalHistory:  req.MedicalHistory,
		SubstanceUse:    req.SubstanceUse,
		FamilyHistory:   req.FamilyHistory,
		Notes:           req.Notes,
		ESILevel:        result.Level,
		ESIExplanation:  result.Explanation,
		Priority:        result.Level,
		Status:          StatusWaiting,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store patient record: %w", err)
	}

	s.logger.Info().
		Str("id", rec.ID.String()).
		Int("esi", rec.ESILevel).
		Msg("patient admitted to waiting room")
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns active records unordered.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*PatientRecord, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Queue returns the prioritized waiting-room view, recomputed from the
// store on every call. Ranking runs over the complete active set; the
// limit/offset window is cut from the ranked order afterwards, so the head
// of the first page is always the most urgent patient in the room.
func (s *Service) Queue(ctx context.Context, limit, offset int) ([]*PatientRecord, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ranked := Rank(records)
	lo, hi := (pagination.Params{Limit: limit, Offset: offset}).Bounds(len(ranked))
	return ranked[lo:hi], nil
}

// Update applies a partial update. When the patch touches blood pressure or
// symptoms, the canonical derived forms are recomputed here so the store
// never holds stale derived fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*PatientRecord, error) {
	patch := &Patch{
		Age:            req.Age,
		Phone:          req.Phone,
		Allergies:      req.Allergies,
		Medications:    req.Medications,
		MedicalHistory: req.MedicalHistory,
		SubstanceUse:   req.SubstanceUse,
		FamilyHistory:  req.FamilyHistory,
		Notes:          req.Notes,
	}

	if req.Vitals != nil {
		patch.Temperature = req.Vitals.Temperature
		patch.Pulse = roundToInt(req.Vitals.Pulse)
		patch.RespirationRate = roundToInt(req.Vitals.RespirationRate)
		if len(req.Vitals.BloodPressure) > 0 {
			bp := NormalizeBloodPressure(req.Vitals.BloodPressure)
			patch.BloodPressure = &bp
		}
	}

	if len(req.Symptoms) > 0 {
		tags, notes, text := NormalizeSymptoms(req.Symptoms)
		patch.SymptomTags = &tags
		patch.SymptomNotes = &notes
		patch.Symptoms = &text
	}

	if req.Status != nil {
		if !ValidStatuses[*req.Status] {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *req.Status)
		}
		patch.Status = req.Status
	}

	if req.Priority != nil {
		// Manual override: priority may diverge from the stored ESI level,
		// but stays on the 1..5 scale so the queue remains orderable.
		if *req.Priority < 1 || *req.Priority > 5 {
			return nil, fmt.Errorf("%w: priority must be between 1 and 5", ErrInvalidInput)
		}
		patch.Priority = req.Priority
	}

	return s.repo.Update(ctx, id, patch)
}

// Relocate removes the patient from the active waiting room entirely.
func (s *Service) Relocate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("id", id.String()).Msg("patient relocated")
	return nil
}
