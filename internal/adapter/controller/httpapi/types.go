package httpapi

import "github.com/YoshitsuguKoike/inboxzero/internal/application/workflow"

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string                  `json:"status"`
	Version string                  `json:"version"`
	Runs    *workflow.StatsSnapshot `json:"runs,omitempty"`
}

// ResetResponse is the body of DELETE /triage/state
type ResetResponse struct {
	UserID string `json:"user_id"`
	Reset  bool   `json:"reset"`
}
