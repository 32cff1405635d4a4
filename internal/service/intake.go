package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mail-job-intake/internal/mailbox"
	"mail-job-intake/internal/metrics"
	"mail-job-intake/internal/model"
	"mail-job-intake/internal/repository"
)

// ErrCycleInProgress is returned when a cycle is requested while one is running
var ErrCycleInProgress = errors.New("poll cycle already in progress")

// CycleResult summarizes one poll cycle
type CycleResult struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Found      int       `json:"found"`
	Created    int       `json:"created"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	// Err is why the cycle ended early; per-message failures only bump Failed.
	Err error `json:"-"`
}

// Duration returns how long the cycle ran
func (r CycleResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrorString returns the cycle error text, or "" on success
func (r CycleResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Intake turns unread mailbox messages into draft jobs
type Intake struct {
	fetcher mailbox.Fetcher
	jobs    repository.JobRepository
	metrics *metrics.Metrics
	log     *logrus.Entry
	now     func() time.Time

	running sync.Mutex
}

// NewIntake creates the intake service from its collaborators
func NewIntake(fetcher mailbox.Fetcher, jobs repository.JobRepository, m *metrics.Metrics) *Intake {
	return &Intake{
		fetcher: fetcher,
		jobs:    jobs,
		metrics: m,
		log:     logrus.WithField("component", "intake"),
		now:     time.Now,
	}
}

// RunCycle fetches the current unread messages and creates a draft job for
// every source identifier not yet in the store. Errors never escape: they are
// logged and reported in the result, and the next cycle rescans the window.
func (s *Intake) RunCycle(ctx context.Context) CycleResult {
	if !s.running.TryLock() {
		now := s.now()
		return CycleResult{StartedAt: now, FinishedAt: now, Err: ErrCycleInProgress}
	}
	defer s.running.Unlock()

	result := CycleResult{StartedAt: s.now()}
	s.metrics.CycleCount.Inc()

	s.log.Info("Checking for new emails")

	messages, err := s.fetcher.Fetch(ctx)
	if err != nil {
		result.Err = fmt.Errorf("failed to fetch emails: %w", err)
	} else {
		s.processMessages(ctx, messages, &result)
	}

	result.FinishedAt = s.now()
	s.record(result)
	return result
}

func (s *Intake) processMessages(ctx context.Context, messages []model.Message, result *CycleResult) {
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return
		}

		result.Found++
		log := s.log.WithFields(logrus.Fields{
			"source_id": msg.SourceID,
			"from":      msg.From,
			"subject":   msg.Subject,
		})

		created, err := s.processMessage(ctx, msg)
		switch {
		case err != nil:
			result.Failed++
			log.Errorf("Failed to process email: %v", err)
		case created == nil:
			result.Skipped++
		default:
			result.Created++
			log.WithField("job_id", created.ID).Info("Created draft job")
		}
	}
}

// processMessage returns the created job, or nil when one already exists.
// The lookup and the insert are separate store calls.
func (s *Intake) processMessage(ctx context.Context, msg model.Message) (*model.Job, error) {
	if msg.SourceID == "" {
		return nil, fmt.Errorf("message has no source identifier")
	}

	existing, err := s.jobs.FindBySourceID(ctx, msg.SourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing job: %w", err)
	}
	if existing != nil {
		s.log.WithField("job_id", existing.ID).Debugf("Email %s already processed, skipping", msg.SourceID)
		return nil, nil
	}

	job := model.NewDraftJob(msg)
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Intake) record(result CycleResult) {
	s.metrics.MessagesFound.Add(float64(result.Found))
	s.metrics.JobsCreated.Add(float64(result.Created))
	s.metrics.MessagesSkipped.Add(float64(result.Skipped))
	s.metrics.InsertFailures.Add(float64(result.Failed))
	s.metrics.CycleDuration.Observe(result.Duration().Seconds())

	fields := logrus.Fields{
		"found":    result.Found,
		"created":  result.Created,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"duration": result.Duration().String(),
	}

	if result.Err != nil {
		s.metrics.CycleFailures.Inc()
		s.log.WithFields(fields).Errorf("Email check ended early: %v", result.Err)
		return
	}

	s.metrics.LastSuccess.Set(float64(result.FinishedAt.Unix()))
	s.log.WithFields(fields).Info("Email check summary")
}
