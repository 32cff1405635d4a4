package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail-job-intake/internal/handler"
	"mail-job-intake/internal/service"
)

type fakeScheduler struct {
	running bool
	last    *service.CycleResult
	next    service.CycleResult
}

func (f *fakeScheduler) Start() error {
	if f.running {
		return errors.New("scheduler is already running")
	}
	f.running = true
	return nil
}

func (f *fakeScheduler) Stop() error {
	f.running = false
	return nil
}

func (f *fakeScheduler) IsRunning() bool { return f.running }

func (f *fakeScheduler) RunOnce(ctx context.Context) service.CycleResult {
	if !errors.Is(f.next.Err, service.ErrCycleInProgress) {
		r := f.next
		f.last = &r
	}
	return f.next
}

func (f *fakeScheduler) GetNextRun() time.Time {
	if !f.running {
		return time.Time{}
	}
	return time.Now().Add(time.Minute)
}

func (f *fakeScheduler) GetLastRun() time.Time {
	if f.last == nil {
		return time.Time{}
	}
	return f.last.StartedAt
}

func (f *fakeScheduler) LastResult() (service.CycleResult, bool) {
	if f.last == nil {
		return service.CycleResult{}, false
	}
	return *f.last, true
}

func serve(t *testing.T, sched *fakeScheduler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := SetupRouter(handler.NewHandlers(sched))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(t, &fakeScheduler{}, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"running","message":"I am awake!"}`, w.Body.String())
}

func TestHealthCheckReportsLastCycle(t *testing.T) {
	sched := &fakeScheduler{
		running: true,
		last: &service.CycleResult{
			StartedAt:  time.Now().Add(-time.Second),
			FinishedAt: time.Now(),
			Found:      3,
			Created:    1,
			Skipped:    2,
		},
	}

	w := serve(t, sched, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "running", resp.Scheduler)
	require.NotNil(t, resp.NextRun)
	require.NotNil(t, resp.LastCycle)
	assert.Equal(t, 1, resp.LastCycle.Created)
	assert.Equal(t, 2, resp.LastCycle.Skipped)
}

func TestHealthCheckDegradedAfterFailedCycle(t *testing.T) {
	sched := &fakeScheduler{last: &service.CycleResult{Err: errors.New("imap login failed")}}

	w := serve(t, sched, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "stopped", resp.Scheduler)
	assert.Equal(t, "imap login failed", resp.LastCycle.Error)
}

func TestRunOnce(t *testing.T) {
	sched := &fakeScheduler{next: service.CycleResult{Found: 2, Created: 2}}

	w := serve(t, sched, http.MethodPost, "/api/v1/scheduler/run-once")
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.CycleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Created)
	assert.Empty(t, resp.Error)
}

func TestRunOnceWhileCycleInProgress(t *testing.T) {
	sched := &fakeScheduler{next: service.CycleResult{Err: service.ErrCycleInProgress}}

	w := serve(t, sched, http.MethodPost, "/api/v1/scheduler/run-once")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSchedulerStartStop(t *testing.T) {
	sched := &fakeScheduler{}

	assert.Equal(t, http.StatusOK, serve(t, sched, http.MethodPost, "/api/v1/scheduler/start").Code)
	assert.True(t, sched.running)
	assert.Equal(t, http.StatusConflict, serve(t, sched, http.MethodPost, "/api/v1/scheduler/start").Code)

	w := serve(t, sched, http.MethodGet, "/api/v1/scheduler/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"running"`)

	assert.Equal(t, http.StatusOK, serve(t, sched, http.MethodPost, "/api/v1/scheduler/stop").Code)
	assert.False(t, sched.running)
}
