package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"

	"mail-job-intake/internal/config"
	"mail-job-intake/internal/model"
)

// RESTRepository talks to a PostgREST endpoint such as Supabase's /rest/v1
type RESTRepository struct {
	client  *postgrest.Client
	table   string
	timeout time.Duration
}

// NewRESTRepository creates a repository for the configured REST store
func NewRESTRepository(cfg *config.StoreConfig) *RESTRepository {
	client := postgrest.NewClient(cfg.URL+"/rest/v1", "public", map[string]string{
		"apikey":        cfg.Key,
		"Authorization": "Bearer " + cfg.Key,
		"Content-Type":  "application/json",
	})

	return &RESTRepository{
		client:  client,
		table:   cfg.Table,
		timeout: cfg.Timeout,
	}
}

// jobRow is the insert payload; id and created_at are left to the store
type jobRow struct {
	EmailSourceID string          `json:"email_source_id"`
	DateReceived  time.Time       `json:"date_received"`
	SenderEmail   string          `json:"sender_email"`
	EmailSubject  string          `json:"email_subject"`
	Status        model.JobStatus `json:"status"`
	RetailerName  string          `json:"retailer_name"`
}

// rowID accepts both uuid and numeric primary keys
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unsupported id %s", data)
	}
	*id = rowID(n.String())
	return nil
}

type idRow struct {
	ID rowID `json:"id"`
}

// call runs a client request and returns early once ctx is done. The
// postgrest client takes no context, so an abandoned request finishes in
// the background and its result is dropped.
func (r *RESTRepository) call(ctx context.Context, fn func() error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FindBySourceID selects the first job whose email_source_id matches
func (r *RESTRepository) FindBySourceID(ctx context.Context, sourceID string) (*model.Job, error) {
	var rows []idRow
	err := r.call(ctx, func() error {
		_, err := r.client.From(r.table).
			Select("id", "", false).
			Eq("email_source_id", sourceID).
			Limit(1, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select job: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &model.Job{ID: string(rows[0].ID), EmailSourceID: sourceID}, nil
}

// Create inserts a job row and reads back the generated id
func (r *RESTRepository) Create(ctx context.Context, job *model.Job) error {
	row := jobRow{
		EmailSourceID: job.EmailSourceID,
		DateReceived:  job.DateReceived,
		SenderEmail:   job.SenderEmail,
		EmailSubject:  job.EmailSubject,
		Status:        job.Status,
		RetailerName:  job.RetailerName,
	}

	var created []idRow
	err := r.call(ctx, func() error {
		_, err := r.client.From(r.table).
			Insert(row, false, "", "representation", "").
			ExecuteTo(&created)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	if len(created) == 0 {
		return fmt.Errorf("failed to insert job: store returned no rows")
	}

	job.ID = string(created[0].ID)
	return nil
}
