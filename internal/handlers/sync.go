package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platewise/platewise-backend/internal/jobs"
	"github.com/platewise/platewise-backend/internal/repos"
)

type SyncHandler struct {
	queue   *jobs.Queue
	jobRepo repos.SyncJobRepo
}

func NewSyncHandler(queue *jobs.Queue, jobRepo repos.SyncJobRepo) *SyncHandler {
	return &SyncHandler{queue: queue, jobRepo: jobRepo}
}

type triggerSyncRequest struct {
	ProviderKey string `json:"provider_key"`
	Query       string `json:"query"`
}

// POST /api/sync
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	var req triggerSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	var providerKey *string
	if req.ProviderKey != "" {
		providerKey = &req.ProviderKey
	}
	jobID, err := h.queue.EnqueueSync(c.Request.Context(), providerKey, req.Query)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			RespondError(c, http.StatusServiceUnavailable, "queue_full", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	RespondAccepted(c, gin.H{"job_id": jobID})
}

type triggerImportRequest struct {
	ProviderKey string `json:"provider_key" binding:"required"`
	URL         string `json:"url" binding:"required"`
}

// POST /api/import
func (h *SyncHandler) TriggerImport(c *gin.Context) {
	var req triggerImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	jobID, err := h.queue.EnqueueImportFromURL(c.Request.Context(), req.ProviderKey, req.URL)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			RespondError(c, http.StatusServiceUnavailable, "queue_full", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	RespondAccepted(c, gin.H{"job_id": jobID})
}

// GET /api/jobs
func (h *SyncHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := h.jobRepo.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "jobs_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": rows})
}

// GET /api/jobs/:id
func (h *SyncHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobRepo.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", errors.New("no such job"))
		return
	}
	RespondOK(c, gin.H{"job": job})
}
