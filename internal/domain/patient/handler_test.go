package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/edtriage/edtriage/internal/platform/classify"
)

func newTestHandler(result classify.Result) (*Handler, *Service) {
	svc := NewService(NewRepoMemory(), &stubClassifier{result: result}, zerolog.Nop())
	return NewHandler(svc), svc
}

func doRequest(h echo.HandlerFunc, method, target, body string, setup func(echo.Context)) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	_ = h(c)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestHandlerIntake_Created(t *testing.T) {
	h, _ := newTestHandler(classify.Result{Level: 2, Explanation: "Severe respiratory distress"})

	payload := `{
		"firstName": "A", "lastName": "B",
		"vitals": {"temperature": 101, "pulse": 110, "respirationRate": 22,
			"bloodPressure": {"systolic": 90, "diastolic": 60}},
		"symptoms": {"selected": ["Shortness of breath"], "notes": ""}
	}`
	rec := doRequest(h.Intake, http.MethodPost, "/api/patients", payload, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != "success" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["message"] != "Patient data received!" {
		t.Errorf("message = %v", body["message"])
	}
	patient, ok := body["patient"].(map[string]interface{})
	if !ok {
		t.Fatal("response missing patient object")
	}
	if patient["bloodPressure"] != "90/60" {
		t.Errorf("bloodPressure = %v, want 90/60", patient["bloodPressure"])
	}
	if patient["esi"] != float64(2) || patient["priority"] != float64(2) {
		t.Errorf("esi/priority = %v/%v, want 2/2", patient["esi"], patient["priority"])
	}
	if patient["status"] != StatusWaiting {
		t.Errorf("patient status = %v, want waiting", patient["status"])
	}
}

func TestHandlerIntake_ValidationError(t *testing.T) {
	h, _ := newTestHandler(classify.Result{Level: 3})

	rec := doRequest(h.Intake, http.MethodPost, "/api/patients", `{"firstName":"A"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != "error" {
		t.Errorf("error envelope missing status discriminator: %v", body)
	}
	if body["message"] == "" {
		t.Error("error envelope must carry a message")
	}
}

func TestHandlerIntake_MalformedJSON(t *testing.T) {
	h, _ := newTestHandler(classify.Result{Level: 3})

	rec := doRequest(h.Intake, http.MethodPost, "/api/patients", `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerIntake_StorageFailure(t *testing.T) {
	svc := NewService(&failingRepo{NewRepoMemory()}, &stubClassifier{result: classify.Result{Level: 1}}, zerolog.Nop())
	h := NewHandler(svc)

	rec := doRequest(h.Intake, http.MethodPost, "/api/patients", `{"firstName":"A","lastName":"B"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != "error" {
		t.Errorf("storage failure must report an error envelope: %v", body)
	}
}

func TestHandlerGet(t *testing.T) {
	h, svc := newTestHandler(classify.Result{Level: 3, Explanation: "ok"})
	stored, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "A", LastName: "B"})

	rec := doRequest(h.Get, http.MethodGet, "/api/patients/"+stored.ID.String(), "", func(c echo.Context) {
		c.SetParamNames("id")
		c.SetParamValues(stored.ID.String())
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	patient := body["patient"].(map[string]interface{})
	if patient["id"] != stored.ID.String() {
		t.Errorf("id = %v", patient["id"])
	}
}

func TestHandlerGet_NotFound(t *testing.T) {
	h, _ := newTestHandler(classify.Result{Level: 3})

	rec := doRequest(h.Get, http.MethodGet, "/api/patients/x", "", func(c echo.Context) {
		c.SetParamNames("id")
		c.SetParamValues("9b8f3f1e-0000-4000-8000-000000000000")
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	if body["status"] != "error" {
		t.Errorf("expected error envelope, got %v", body)
	}
}

func TestHandlerGet_BadID(t *testing.T) {
	h, _ := newTestHandler(classify.Result{Level: 3})

	rec := doRequest(h.Get, http.MethodGet, "/api/patients/nope", "", func(c echo.Context) {
		c.SetParamNames("id")
		c.SetParamValues("nope")
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerList_EmptyIsArray(t *testing.T) {
	h, _ := newTestHandler(classify.Result{Level: 3})

	rec := doRequest(h.List, http.MethodGet, "/api/patients", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty list must serialize as [], got %q", got)
	}
}

func TestHandlerQueue_Ordering(t *testing.T) {
	h, svc := newTestHandler(classify.Result{Level: 3, Explanation: "ok"})

	a, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "A", LastName: "W"})
	b, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "B", LastName: "W"})
	svc.Update(context.Background(), b.ID, &UpdateRequest{Priority: ptrInt(1)})

	rec := doRequest(h.Queue, http.MethodGet, "/api/patients/queue", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var queue []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &queue); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("expected 2 queued patients, got %d", len(queue))
	}
	if queue[0]["id"] != b.ID.String() || queue[1]["id"] != a.ID.String() {
		t.Error("queue not ordered by priority")
	}
}

func TestHandlerUpdate_Rederivation(t *testing.T) {
	h, svc := newTestHandler(classify.Result{Level: 3, Explanation: "ok"})
	stored, _ := svc.Intake(context.Background(), &IntakeRequest{
		FirstName: "A", LastName: "B",
		Symptoms: json.RawMessage(`{"selected":["Fever"],"notes":""}`),
	})

	payload := `{"vitals": {"bloodPressure": {"systolic": 130, "diastolic": 85}}}`
	rec := doRequest(h.Update, http.MethodPut, "/api/patients/"+stored.ID.String(), payload, func(c echo.Context) {
		c.SetParamNames("id")
		c.SetParamValues(stored.ID.String())
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	patient := body["patient"].(map[string]interface{})
	if patient["bloodPressure"] != "130/85" {
		t.Errorf("bloodPressure = %v, want 130/85", patient["bloodPressure"])
	}
	if patient["symptoms"] != "Fever" {
		t.Errorf("untouched symptoms changed: %v", patient["symptoms"])
	}
}

func TestHandlerUpdate_InvalidPriority(t *testing.T) {
	h, svc := newTestHandler(classify.Result{Level: 3, Explanation: "ok"})
	stored, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "A", LastName: "B"})

	rec := doRequest(h.Update, http.MethodPut, "/api/patients/"+stored.ID.String(), `{"priority": 9}`, func(c echo.Context) {
		c.SetParamNames("id")
		c.SetParamValues(stored.ID.String())
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerRelocate_ThenList(t *testing.T) {
	h, svc := newTestHandler(classify.Result{Level: 3, Explanation: "ok"})
	gone, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "Gone", LastName: "B"})
	keep, _ := svc.Intake(context.Background(), &IntakeRequest{FirstName: "Keep", LastName: "B"})

	rec := doRequest(h.Relocate, http.MethodDelete, "/api/patients/"+gone.ID.String()+"/relocate", "", func(c echo.Context) {
		c.SetParamNames("id")
		c.SetParamValues(gone.ID.String())
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeEnvelope(t, rec); body["status"] != "success" {
		t.Errorf("expected success envelope, got %v", body)
	}

	listRec := doRequest(h.List, http.MethodGet, "/api/patients", "", nil)
	var items []map[string]interface{}
	if err := json.Unmarshal(listRec.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(items) != 1 || items[0]["id"] != keep.ID.String() {
		t.Errorf("relocated patient still listed: %v", items)
	}

	again := doRequest(h.Relocate, http.MethodDelete, "/api/patients/"+gone.ID.String()+"/relocate", "", func(c echo.Context) {
		c.SetParamNames("id")
		c.SetParamValues(gone.ID.String())
	})
	if again.Code != http.StatusNotFound {
		t.Errorf("second relocate status = %d, want 404", again.Code)
	}
}
