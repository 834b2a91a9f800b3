package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"

	apperrors "github.com/flashpointintel/pipeline/internal/errors"
	"github.com/flashpointintel/pipeline/pkg/model"
)

type fakeRunStore struct {
	active    bool
	activeErr error
	byDate    map[string][]model.Run
	byID      map[string]*model.Run
}

func (f *fakeRunStore) HasActiveRun(ctx context.Context, maxAge time.Duration) (bool, error) {
	return f.active, f.activeErr
}

func (f *fakeRunStore) GetByID(ctx context.Context, runID string) (*model.Run, error) {
	run, ok := f.byID[runID]
	if !ok {
		return nil, apperrors.NewNotFoundError("run")
	}
	return run, nil
}

func (f *fakeRunStore) GetRunsByDate(ctx context.Context, targetDate string) ([]model.Run, error) {
	return f.byDate[targetDate], nil
}

type fakeTrigger struct {
	err      error
	date     string
	tier     string
	called   bool
}

func (f *fakeTrigger) Trigger(ctx context.Context, targetDate, tier string) error {
	f.called = true
	f.date = targetDate
	f.tier = tier
	return f.err
}

func newTestServer(t *testing.T, runs *fakeRunStore, trig *fakeTrigger) *Server {
	t.Helper()
	s, err := NewServer(runs, trig, Config{APIKey: "test-key", HasActiveMaxAge: time.Hour}, logr.Discard())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestHealthIsUnauthenticated(t *testing.T) {
	s := newTestServer(t, &fakeRunStore{}, &fakeTrigger{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestTriggerRunRejectsMissingAPIKey(t *testing.T) {
	s := newTestServer(t, &fakeRunStore{}, &fakeTrigger{})
	body := bytes.NewBufferString(`{"target_date":"2026-07-31"}`)
	req := httptest.NewRequest(http.MethodPost, "/pipeline/run", body)
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTriggerRunAccepts(t *testing.T) {
	trig := &fakeTrigger{}
	s := newTestServer(t, &fakeRunStore{}, trig)
	body := bytes.NewBufferString(`{"target_date":"2026-07-31","tier":"B"}`)
	req := httptest.NewRequest(http.MethodPost, "/pipeline/run", body)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", rec.Code, rec.Body.String())
	}
	if !trig.called || trig.date != "2026-07-31" || trig.tier != "B" {
		t.Fatalf("expected trigger called with date/tier, got %+v", trig)
	}
}

func TestTriggerRunRejectsMissingTargetDate(t *testing.T) {
	s := newTestServer(t, &fakeRunStore{}, &fakeTrigger{})
	body := bytes.NewBufferString(`{"tier":"A"}`)
	req := httptest.NewRequest(http.MethodPost, "/pipeline/run", body)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}

func TestTriggerRunReturnsConflictOnActiveRun(t *testing.T) {
	s := newTestServer(t, &fakeRunStore{active: true}, &fakeTrigger{})
	body := bytes.NewBufferString(`{"target_date":"2026-07-31"}`)
	req := httptest.NewRequest(http.MethodPost, "/pipeline/run", body)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestTriggerRunReturns500WhenActiveCheckFails(t *testing.T) {
	s := newTestServer(t, &fakeRunStore{activeErr: errors.New("db down")}, &fakeTrigger{})
	body := bytes.NewBufferString(`{"target_date":"2026-07-31"}`)
	req := httptest.NewRequest(http.MethodPost, "/pipeline/run", body)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestListRunsRequiresDateAndReturns404WhenEmpty(t *testing.T) {
	s := newTestServer(t, &fakeRunStore{byDate: map[string][]model.Run{}}, &fakeTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/pipeline/runs", nil)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without date", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/pipeline/runs?date=2026-07-31", nil)
	req.Header.Set(apiKeyHeader, "test-key")
	rec = httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown date", rec.Code)
	}
}

func TestListRunsAppliesJQProjection(t *testing.T) {
	run := model.Run{
		RunID: "run_1", Status: model.RunStatusCompleted, TargetDate: "2026-07-31",
		StartedAt: time.Now(), Metrics: map[string]any{"total_entries": 42},
	}
	s := newTestServer(t, &fakeRunStore{byDate: map[string][]model.Run{"2026-07-31": {run}}}, &fakeTrigger{})

	req := httptest.NewRequest(http.MethodGet, "/pipeline/runs?date=2026-07-31&jq=.total_entries", nil)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	var decoded []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected exactly one run in response")
	}
	if got := decoded[0]["jq"]; got != float64(42) {
		t.Fatalf("jq projection = %v, want 42", got)
	}
}

func TestGetRunReturns404ForUnknownID(t *testing.T) {
	s := newTestServer(t, &fakeRunStore{byID: map[string]*model.Run{}}, &fakeTrigger{})
	req := httptest.NewRequest(http.MethodGet, "/pipeline/runs/does-not-exist", nil)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetRunReturns200ForKnownID(t *testing.T) {
	run := &model.Run{RunID: "run_1", Status: model.RunStatusRunning, TargetDate: "2026-07-31", StartedAt: time.Now()}
	s := newTestServer(t, &fakeRunStore{byID: map[string]*model.Run{"run_1": run}}, &fakeTrigger{})
	req := httptest.NewRequest(http.MethodGet, "/pipeline/runs/run_1", nil)
	req.Header.Set(apiKeyHeader, "test-key")
	rec := httptest.NewRecorder()
	s.NewRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}
