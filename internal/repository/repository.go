// Package repository persists draft jobs in the jobs table.
package repository

import (
	"context"

	"mail-job-intake/internal/model"
)

// JobRepository is the job store used for deduplication and insert.
// Lookup and insert are separate calls; callers must not assume atomicity.
type JobRepository interface {
	// FindBySourceID returns the job created for a source identifier,
	// or nil when none exists.
	FindBySourceID(ctx context.Context, sourceID string) (*model.Job, error)
	// Create inserts a job and fills in its ID.
	Create(ctx context.Context, job *model.Job) error
}
