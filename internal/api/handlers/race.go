package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/pipeline"
)

// ResultReader looks up stored run outcomes.
type ResultReader interface {
	GetResult(ctx context.Context, runID uuid.UUID) (*models.RaceResult, error)
}

type RaceHandler struct {
	progress *pipeline.Progress
	results  ResultReader
}

func NewRaceHandler(progress *pipeline.Progress, results ResultReader) *RaceHandler {
	return &RaceHandler{progress: progress, results: results}
}

// Current returns the live snapshot of the running race.
func (h *RaceHandler) Current(c *gin.Context) {
	if h.progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no race running"})
		return
	}
	c.JSON(http.StatusOK, h.progress.Snapshot())
}

// Result returns a stored run outcome by run id.
func (h *RaceHandler) Result(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "result storage not configured"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	result, err := h.results.GetResult(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}
