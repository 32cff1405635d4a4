package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mail-job-intake/internal/service"
)

// StartScheduler starts the poll loop
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "scheduler_error",
			Message: err.Error(),
			Code:    http.StatusConflict,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler started successfully",
		"status":  "running",
	})
}

// StopScheduler stops the poll loop
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to stop scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler stopped successfully",
		"status":  "stopped",
	})
}

// RunOnce runs one email check and returns its result
func (h *Handlers) RunOnce(c *gin.Context) {
	result := h.scheduler.RunOnce(c.Request.Context())

	if errors.Is(result.Err, service.ErrCycleInProgress) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "cycle_in_progress",
			Message: result.Err.Error(),
			Code:    http.StatusConflict,
		})
		return
	}

	// Cycle errors are reported in the body; the request itself succeeded.
	c.JSON(http.StatusOK, newCycleResponse(result))
}

// GetSchedulerStatus returns the current scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := "stopped"
	if h.scheduler.IsRunning() {
		status = "running"
	}

	response := gin.H{
		"status":   status,
		"next_run": h.scheduler.GetNextRun(),
		"last_run": h.scheduler.GetLastRun(),
	}
	if last, ok := h.scheduler.LastResult(); ok {
		response["last_cycle"] = newCycleResponse(last)
	}

	c.JSON(http.StatusOK, response)
}
