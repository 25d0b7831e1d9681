package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/services"
)

type AlertsHandler struct {
	alerts services.AlertService
}

func NewAlertsHandler(alerts services.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

func alertFilterFromQuery(c *gin.Context) repos.AlertFilter {
	return repos.AlertFilter{
		Type:        c.Query("type"),
		ProviderKey: c.Query("provider"),
		Status:      c.Query("status"),
	}
}

// GET /api/alerts
func (h *AlertsHandler) ListAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.alerts.List(c.Request.Context(), alertFilterFromQuery(c), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "alerts_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"alerts": rows})
}

// POST /api/alerts/:id/dismiss
func (h *AlertsHandler) DismissAlert(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_alert_id", err)
		return
	}
	ok, err := h.alerts.Dismiss(c.Request.Context(), alertID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "alert_dismiss_failed", err)
		return
	}
	// ok is false for unknown ids and for repeat dismissals alike; both are
	// harmless, so the response just says nothing changed.
	RespondOK(c, gin.H{"dismissed": ok})
}

// POST /api/alerts/dismiss_all
func (h *AlertsHandler) DismissAll(c *gin.Context) {
	n, err := h.alerts.DismissAll(c.Request.Context(), alertFilterFromQuery(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "alert_dismiss_failed", err)
		return
	}
	RespondOK(c, gin.H{"dismissed_count": n})
}
