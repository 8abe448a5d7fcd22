package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/orderbatch/internal/domain"
	"github.com/timmy/orderbatch/internal/logger"
	"github.com/timmy/orderbatch/internal/report"
	"github.com/timmy/orderbatch/internal/repository"
	"github.com/timmy/orderbatch/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// RunQuerier is the read side of the run history. *service.RunQueryService
// implements it.
type RunQuerier interface {
	ListRuns(ctx context.Context, status domain.RunStatus, limit, offset int) ([]domain.BatchRun, error)
	GetRun(ctx context.Context, id string) (*domain.BatchRun, error)
	ListChunks(ctx context.Context, id string) ([]domain.ChunkExecution, error)
	Summary(ctx context.Context, id string) (*domain.RunSummary, error)
	ArchivedReport(ctx context.Context, id string) (*domain.RunSummary, error)
}

// RunHandler handles run history endpoints.
type RunHandler struct {
	runs RunQuerier
}

// NewRunHandler creates a new run handler.
// Parameters:
//   - runs: run query service.
// Returns:
//   - *RunHandler: initialized handler.
func NewRunHandler(runs RunQuerier) *RunHandler {
	return &RunHandler{runs: runs}
}

// ListRunsResponse is the body of GET /api/v1/runs.
type ListRunsResponse struct {
	Runs   []domain.BatchRun `json:"runs"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ListRuns handles GET /api/v1/runs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) ListRuns(c *gin.Context) {
	status := domain.RunStatus(c.Query("status"))
	if status != "" && status != domain.RunStatusStarted && !status.IsTerminal() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown run status: " + string(status),
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.fail(c, err, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []domain.BatchRun{}
	}

	c.JSON(http.StatusOK, ListRunsResponse{Runs: runs, Limit: limit, Offset: offset})
}

// GetRun handles GET /api/v1/runs/:id.
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to get run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListChunks handles GET /api/v1/runs/:id/chunks.
func (h *RunHandler) ListChunks(c *gin.Context) {
	chunks, err := h.runs.ListChunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to list chunks")
		return
	}
	if chunks == nil {
		chunks = []domain.ChunkExecution{}
	}
	c.JSON(http.StatusOK, gin.H{"chunks": chunks})
}

// Summary handles GET /api/v1/runs/:id/summary.
func (h *RunHandler) Summary(c *gin.Context) {
	summary, err := h.runs.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to build summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ArchivedReport handles GET /api/v1/runs/:id/report.
func (h *RunHandler) ArchivedReport(c *gin.Context) {
	summary, err := h.runs.ArchivedReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to fetch archived report")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *RunHandler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
	case errors.Is(err, report.ErrNotArchived):
		c.JSON(http.StatusNotFound, gin.H{"error": "No archived report for run"})
	case errors.Is(err, service.ErrArchiveDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report archive is not configured"})
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
