package handler

import (
	"time"

	"mail-job-intake/internal/service"
)

// LivenessResponse is the fixed payload served at /
type LivenessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CycleResponse represents one poll cycle result
type CycleResponse struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   string    `json:"duration"`
	Found      int       `json:"found"`
	Created    int       `json:"created"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

func newCycleResponse(r service.CycleResult) *CycleResponse {
	return &CycleResponse{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   r.Duration().String(),
		Found:      r.Found,
		Created:    r.Created,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Error:      r.ErrorString(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Scheduler string         `json:"scheduler"`
	NextRun   *time.Time     `json:"next_run,omitempty"`
	LastCycle *CycleResponse `json:"last_cycle,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
