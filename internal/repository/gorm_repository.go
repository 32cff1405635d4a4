package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mail-job-intake/internal/model"
)

// GormRepository stores jobs through a direct database connection
type GormRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormRepository creates a new gorm-backed JobRepository
func NewGormRepository(db *gorm.DB, timeout time.Duration) *GormRepository {
	return &GormRepository{db: db, timeout: timeout}
}

func (r *GormRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// FindBySourceID checks if a job was already created for the source identifier
func (r *GormRepository) FindBySourceID(ctx context.Context, sourceID string) (*model.Job, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var job model.Job
	result := r.db.WithContext(ctx).
		Select("id", "email_source_id").
		Where("email_source_id = ?", sourceID).
		First(&job)

	if result.Error == nil {
		return &job, nil
	}
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("database error checking job: %w", result.Error)
}

// Create inserts the job, assigning a uuid when it has none
func (r *GormRepository) Create(ctx context.Context, job *model.Job) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}
