package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/flashpointintel/pipeline/pkg/model"
)

// problem is an RFC 7807-shaped error body, matching the corpus's
// pkg/datastorage/validation problem-document convention (SPEC_FULL.md
// A.2).
type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// runRequest is the POST /pipeline/run body, validated against
// openapi.yaml before being unmarshaled into this struct.
type runRequest struct {
	TargetDate string `json:"target_date"`
	Tier       string `json:"tier"`
}

// runView is the JSON shape returned for a single run.
type runView struct {
	RunID        string         `json:"run_id"`
	Status       model.RunStatus `json:"status"`
	Tier         string         `json:"tier"`
	TargetDate   string         `json:"target_date"`
	StartedAt    string         `json:"started_at"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
}

func toRunView(r model.Run) runView {
	return runView{
		RunID:        r.RunID,
		Status:       r.Status,
		Tier:         r.Tier,
		TargetDate:   r.TargetDate,
		StartedAt:    r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		ErrorMessage: r.ErrorMessage,
		Metrics:      r.Metrics,
	}
}
