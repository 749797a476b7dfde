package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edtriage/edtriage/internal/platform/classify"
)

// stubClassifier returns a canned result and records the input it saw.
type stubClassifier struct {
	result classify.Result
	lastIn classify.Input
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, in classify.Input) classify.Result {
	s.calls++
	s.lastIn = in
	return s.result
}

// failingRepo simulates a storage outage on insert.
type failingRepo struct{ Repository }

func (f *failingRepo) Create(context.Context, *PatientRecord) error {
	return fmt.Errorf("connection reset by peer")
}

func newTestService(result classify.Result) (*Service, *stubClassifier) {
	cls := &stubClassifier{result: result}
	svc := NewService(NewRepoMemory(), cls, zerolog.Nop())
	return svc, cls
}

func intakeFixture() *IntakeRequest {
	return &IntakeRequest{
		FirstName: "A",
		LastName:  "B",
		Vitals: &VitalsPayload{
			Temperature:     ptrFloat(101),
			Pulse:           ptrFloat(110),
			RespirationRate: ptrFloat(22),
			BloodPressure:   json.RawMessage(`{"systolic":90,"diastolic":60}`),
		},
		Symptoms: json.RawMessage(`{"selected":["Shortness of breath"],"notes":""}`),
	}
}

func TestIntake_EndToEnd(t *testing.T) {
	svc, cls := newTestService(classify.Result{Level: 2, Explanation: "Severe respiratory distress"})

	rec, err := svc.Intake(context.Background(), intakeFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
	if rec.BloodPressure != "90/60" {
		t.Errorf("bloodPressure = %q, want 90/60", rec.BloodPressure)
	}
	if rec.ESILevel != 2 {
		t.Errorf("esi = %d, want 2", rec.ESILevel)
	}
	if rec.Priority != 2 {
		t.Errorf("priority defaults to esi: got %d, want 2", rec.Priority)
	}
	if rec.Status != StatusWaiting {
		t.Errorf("status = %q, want waiting", rec.Status)
	}
	if rec.Symptoms != "Shortness of breath" {
		t.Errorf("canonical symptoms = %q", rec.Symptoms)
	}
	if rec.DateOfVisit != rec.TimeEntered.Format("2006-01-02") {
		t.Errorf("dateOfVisit %q not derived from timeEntered", rec.DateOfVisit)
	}

	// The classifier saw the canonical bundle, not the raw payload.
	if cls.lastIn.BloodPressure != "90/60" || cls.lastIn.Symptoms != "Shortness of breath" {
		t.Errorf("classifier input not normalized: %+v", cls.lastIn)
	}

	// The record was persisted.
	stored, err := svc.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("stored record not retrievable: %v", err)
	}
	if stored.ESILevel != 2 {
		t.Errorf("stored esi = %d", stored.ESILevel)
	}
}

func TestIntake_MissingIdentity(t *testing.T) {
	svc, cls := newTestService(classify.Result{Level: 3})

	for _, req := range []*IntakeRequest{
		{},
		{FirstName: "A"},
		{LastName: "B"},
		{FirstName: "  ", LastName: "B"},
	} {
		if _, err := svc.Intake(context.Background(), req); err == nil {
			t.Errorf("expected invalid-input error for %+v", req)
		}
	}
	if cls.calls != 0 {
		t.Error("validation failure must abort before any side effect")
	}
}

func TestIntake_DegradedClassificationStillStores(t *testing.T) {
	svc, _ := newTestService(classify.Fallback())

	rec, err := svc.Intake(context.Background(), intakeFixture())
	if err != nil {
		t.Fatalf("degraded classification must not fail intake: %v", err)
	}
	if rec.ESILevel != classify.FallbackLevel {
		t.Errorf("esi = %d, want fallback level %d", rec.ESILevel, classify.FallbackLevel)
	}
	if rec.ESIExplanation != classify.FallbackExplanation {
		t.Errorf("explanation = %q, want fallback marker", rec.ESIExplanation)
	}
	if rec.Priority != classify.FallbackLevel {
		t.Error("queue must stay orderable: priority carries the fallback level")
	}
}

func TestIntake_StorageFailureSurfaces(t *testing.T) {
	cls := &stubClassifier{result: classify.Result{Level: 1, Explanation: "critical"}}
	svc := NewService(&failingRepo{NewRepoMemory()}, cls, zerolog.Nop())

	rec, err := svc.Intake(context.Background(), intakeFixture())
	if err == nil {
		t.Fatal("storage failure must surface as intake failure")
	}
	if rec != nil {
		t.Error("an unpersisted record must not be returned as if saved")
	}
}

func TestUpdate_RederivesBloodPressure(t *testing.T) {
	svc, _ := newTestService(classify.Result{Level: 3, Explanation: "ok"})
	rec, _ := svc.Intake(context.Background(), intakeFixture())

	updated, err := svc.Update(context.Background(), rec.ID, &UpdateRequest{
		Vitals: &VitalsPayload{BloodPressure: json.RawMessage(`{"systolic":130,"diastolic":85}`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.BloodPressure != "130/85" {
		t.Errorf("bloodPressure = %q, want 130/85", updated.BloodPressure)
	}
	// Symptoms were not resent and must survive untouched.
	if updated.Symptoms != "Shortness of breath" {
		t.Errorf("symptoms changed without being patched: %q", updated.Symptoms)
	}
}

func TestUpdate_RederivesSymptomText(t *testing.T) {
	svc, _ := newTestService(classify.Result{Level: 3, Explanation: "ok"})
	rec, _ := svc.Intake(context.Background(), intakeFixture())

	updated, err := svc.Update(context.Background(), rec.ID, &UpdateRequest{
		Symptoms: json.RawMessage(`{"selected":["Fever","Cough"],"notes":"worsening"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Symptoms != "Fever, Cough. Additional notes: worsening" {
		t.Errorf("canonical text not re-derived: %q", updated.Symptoms)
	}
	if len(updated.SymptomTags) != 2 {
		t.Errorf("tags not updated: %v", updated.SymptomTags)
	}
}

func TestUpdate_PriorityOverrideDiverges(t *testing.T) {
	svc, _ := newTestService(classify.Result{Level: 4, Explanation: "less urgent"})
	rec, _ := svc.Intake(context.Background(), intakeFixture())

	updated, err := svc.Update(context.Background(), rec.ID, &UpdateRequest{Priority: ptrInt(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Priority != 2 {
		t.Errorf("priority = %d, want 2", updated.Priority)
	}
	if updated.ESILevel != 4 {
		t.Error("manual priority override must not rewrite the esi level")
	}
}

func TestUpdate_RejectsInvalidValues(t *testing.T) {
	svc, _ := newTestService(classify.Result{Level: 3, Explanation: "ok"})
	rec, _ := svc.Intake(context.Background(), intakeFixture())

	if _, err := svc.Update(context.Background(), rec.ID, &UpdateRequest{Priority: ptrInt(0)}); err == nil {
		t.Error("expected error for priority below 1")
	}
	if _, err := svc.Update(context.Background(), rec.ID, &UpdateRequest{Priority: ptrInt(6)}); err == nil {
		t.Error("expected error for priority above 5")
	}
	if _, err := svc.Update(context.Background(), rec.ID, &UpdateRequest{Status: ptrStr("teleported")}); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestUpdate_UnknownID(t *testing.T) {
	svc, _ := newTestService(classify.Result{Level: 3})
	if _, err := svc.Update(context.Background(), uuid.New(), &UpdateRequest{Priority: ptrInt(1)}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRelocate_ThenList(t *testing.T) {
	svc, _ := newTestService(classify.Result{Level: 3, Explanation: "ok"})
	rec, _ := svc.Intake(context.Background(), intakeFixture())
	other, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "C", LastName: "D"})

	if err := svc.Relocate(context.Background(), rec.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, _, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range records {
		if p.ID == rec.ID {
			t.Error("relocated patient still listed")
		}
	}
	if len(records) != 1 || records[0].ID != other.ID {
		t.Errorf("unexpected remaining records: %d", len(records))
	}

	if err := svc.Relocate(context.Background(), rec.ID); err != ErrNotFound {
		t.Errorf("second relocate must report not-found, got %v", err)
	}
}

func TestQueue_OrdersByPriorityThenArrival(t *testing.T) {
	svc := NewService(NewRepoMemory(), &stubClassifier{result: classify.Result{Level: 3, Explanation: "ok"}}, zerolog.Nop())

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}
	i := 0
	svc.now = func() time.Time { ts := times[i%len(times)]; i++; return ts }

	// Three walk-ins at one-minute intervals, then manual overrides to
	// create the interesting ordering.
	first, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "First", LastName: "W"})
	second, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "Second", LastName: "W"})
	third, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "Third", LastName: "W"})

	svc.Update(context.Background(), third.ID, &UpdateRequest{Priority: ptrInt(1)})
	// first and second stay at priority 3; first arrived earlier.

	queue, err := svc.Queue(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 queued patients, got %d", len(queue))
	}
	if queue[0].ID != third.ID {
		t.Error("priority 1 override must rank first")
	}
	if queue[1].ID != first.ID || queue[2].ID != second.ID {
		t.Error("equal priority must rank by earlier timeEntered")
	}
}

func TestQueue_RanksFullSetBeforeWindowing(t *testing.T) {
	svc, _ := newTestService(classify.Result{Level: 3, Explanation: "ok"})

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time { ts := base.Add(time.Duration(step) * time.Minute); step++; return ts }

	// Fill well past one page with routine walk-ins, then admit one critical
	// patient last. Arrival order must not decide page membership.
	for i := 0; i < 55; i++ {
		if _, err := svc.Intake(context.Background(), &IntakeRequest{
			FirstName: fmt.Sprintf("Walkin%02d", i), LastName: "W",
		}); err != nil {
			t.Fatalf("intake %d: %v", i, err)
		}
	}
	urgent, err := svc.Intake(context.Background(), &IntakeRequest{FirstName: "Urgent", LastName: "W"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Update(context.Background(), urgent.ID, &UpdateRequest{Priority: ptrInt(1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := svc.Queue(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 50 {
		t.Fatalf("expected a full page of 50, got %d", len(page))
	}
	if page[0].ID != urgent.ID {
		t.Errorf("latest-arrival priority-1 patient must head the first page, got %s (priority %d)",
			page[0].FirstName, page[0].Priority)
	}

	// The window is cut from the ranked order, so the second page carries
	// the latest equal-priority arrivals.
	rest, err := svc.Queue(context.Background(), 50, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 6 {
		t.Fatalf("expected 6 remaining patients, got %d", len(rest))
	}
	for _, p := range rest {
		if p.Priority != 3 {
			t.Errorf("second page must hold only priority-3 records, got %d", p.Priority)
		}
	}
}
