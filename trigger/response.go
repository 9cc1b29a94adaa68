package trigger

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/raikasdev/howareya/core/model"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type resultView struct {
	ContactID int64      `json:"contact_id"`
	OwnerID   string     `json:"owner_id"`
	Outcome   string     `json:"outcome"`
	Start     *time.Time `json:"start,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

type reportView struct {
	RunID      string         `json:"run_id"`
	Trigger    string         `json:"trigger"`
	Forced     bool           `json:"forced"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Counts     map[string]int `json:"counts"`
	Results    []resultView   `json:"results"`
}

func newReportView(r model.RunReport) reportView {
	v := reportView{
		RunID:      r.ID,
		Trigger:    r.Trigger,
		Forced:     r.Forced,
		StartedAt:  r.StartedAt.UTC(),
		DurationMS: r.Duration.Milliseconds(),
		Counts:     map[string]int{},
		Results:    make([]resultView, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		v.Counts[string(res.Outcome)]++
		rv := resultView{
			ContactID: res.ContactID,
			OwnerID:   res.OwnerID,
			Outcome:   string(res.Outcome),
			Reason:    res.Reason,
		}
		if !res.Start.IsZero() {
			start := res.Start.UTC()
			rv.Start = &start
		}
		v.Results = append(v.Results, rv)
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("encode response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.respondJSON(w, status, errorResponse{Error: msg, RequestID: middleware.GetReqID(r.Context())})
}
