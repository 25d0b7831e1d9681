package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/platewise/platewise-backend/internal/services"
)

type CredentialsHandler struct {
	creds services.CredentialService
}

func NewCredentialsHandler(creds services.CredentialService) *CredentialsHandler {
	return &CredentialsHandler{creds: creds}
}

type putCredentialRequest struct {
	Secret string `json:"secret" binding:"required"`
	Label  string `json:"label"`
}

// PUT /api/providers/:key/credential
// The secret is write-only; there is no endpoint that returns it.
func (h *CredentialsHandler) PutCredential(c *gin.Context) {
	if h.creds == nil {
		RespondError(c, http.StatusServiceUnavailable, "credentials_disabled",
			errors.New("credential storage is not configured"))
		return
	}
	providerKey := strings.TrimSpace(c.Param("key"))
	var req putCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.creds.SetCredential(c.Request.Context(), providerKey, req.Secret, req.Label); err != nil {
		RespondError(c, http.StatusInternalServerError, "credential_store_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
