package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/services"
)

type DietHandler struct {
	dietSvc services.DietService
	tagRepo repos.DietTagRepo
}

func NewDietHandler(dietSvc services.DietService, tagRepo repos.DietTagRepo) *DietHandler {
	return &DietHandler{dietSvc: dietSvc, tagRepo: tagRepo}
}

// GET /api/diet/tags
func (h *DietHandler) ListTags(c *gin.Context) {
	tags, err := h.tagRepo.List(c.Request.Context(), nil)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "diet_tags_failed", err)
		return
	}
	RespondOK(c, gin.H{"tags": tags})
}

type overrideRequest struct {
	Supported *bool  `json:"supported" binding:"required"`
	Notes     string `json:"notes"`
	CreatedBy string `json:"created_by"`
}

// PUT /api/restaurants/:id/diet/:tag
func (h *DietHandler) PutOverride(c *gin.Context) {
	restID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_restaurant_id", err)
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	tagKey := strings.TrimSpace(c.Param("tag"))
	if err := h.dietSvc.SetOverride(c.Request.Context(), restID, tagKey, *req.Supported, req.Notes, req.CreatedBy); err != nil {
		RespondError(c, http.StatusBadRequest, "override_failed", err)
		return
	}
	RespondOK(c, gin.H{"restaurant_id": restID, "tag": tagKey, "supported": *req.Supported})
}

// DELETE /api/restaurants/:id/diet/:tag
func (h *DietHandler) DeleteOverride(c *gin.Context) {
	restID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_restaurant_id", err)
		return
	}
	tagKey := strings.TrimSpace(c.Param("tag"))
	if err := h.dietSvc.RemoveOverride(c.Request.Context(), restID, tagKey); err != nil {
		RespondError(c, http.StatusBadRequest, "override_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
