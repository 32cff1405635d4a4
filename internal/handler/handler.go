package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mail-job-intake/internal/service"
)

// Scheduler is the part of the poll scheduler exposed over HTTP
type Scheduler interface {
	Start() error
	Stop() error
	IsRunning() bool
	RunOnce(ctx context.Context) service.CycleResult
	GetNextRun() time.Time
	GetLastRun() time.Time
	LastResult() (service.CycleResult, bool)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	scheduler Scheduler
	metrics   http.Handler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(scheduler Scheduler) *Handlers {
	return &Handlers{
		scheduler: scheduler,
		metrics:   promhttp.Handler(),
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/", h.Liveness)
	router.HEAD("/", h.Liveness)
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(h.metrics))

	api := router.Group("/api/v1")
	{
		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

// Liveness answers uptime monitors with a fixed payload
func (h *Handlers) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "running",
		Message: "I am awake!",
	})
}

// HealthCheck reports scheduler state and the outcome of the last cycle
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Scheduler: "stopped",
	}

	if h.scheduler.IsRunning() {
		response.Scheduler = "running"
		if next := h.scheduler.GetNextRun(); !next.IsZero() {
			response.NextRun = &next
		}
	}

	if last, ok := h.scheduler.LastResult(); ok {
		response.LastCycle = newCycleResponse(last)
		if last.Err != nil {
			response.Status = "degraded"
		}
	}

	// A failed cycle is retried on the next tick, so the process stays live.
	c.JSON(http.StatusOK, response)
}
