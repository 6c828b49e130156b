package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/middleware"
	"github.com/klya-ai/klya-api/internal/models"
	"github.com/klya-ai/klya-api/internal/service"
)

const secretNotice = "Save this key - it won't be shown again"

// APIKeyHandler serves the owner's key management endpoints under /api/keys.
type APIKeyHandler struct {
	service *service.APIKeyService
	log     *slog.Logger
}

func NewAPIKeyHandler(service *service.APIKeyService, log *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{service: service, log: log}
}

type createKeyRequest struct {
	Name        string             `json:"name" binding:"required"`
	Permissions []string           `json:"permissions"`
	RateLimits  *models.RateLimits `json:"rate_limits"`
	ExpiresAt   *time.Time         `json:"expires_at"`
}

type updateKeyRequest struct {
	Name        *string            `json:"name"`
	Permissions []string           `json:"permissions"`
	RateLimits  *models.RateLimits `json:"rate_limits"`
	ExpiresAt   *time.Time         `json:"expires_at"`
	ClearExpiry bool               `json:"clear_expiry"`
	IsActive    *bool              `json:"is_active"`
}

// Handles POST /api/keys
func (h *APIKeyHandler) Create(c *gin.Context) {
	ownerID, ok := middleware.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiKey, secret, err := h.service.Create(c.Request.Context(), service.CreateKeyParams{
		OwnerID:     ownerID,
		Name:        req.Name,
		Permissions: req.Permissions,
		RateLimits:  req.RateLimits,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"key":     secret,
		"api_key": apiKey,
		"message": secretNotice,
	})
}

// Handles GET /api/keys
func (h *APIKeyHandler) List(c *gin.Context) {
	ownerID, ok := middleware.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	keys, err := h.service.List(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if keys == nil {
		keys = []models.APIKey{}
	}

	c.JSON(http.StatusOK, gin.H{"api_keys": keys})
}

// Handles GET /api/keys/:id
func (h *APIKeyHandler) Get(c *gin.Context) {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return
	}

	apiKey, err := h.service.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, apiKey)
}

// Handles PATCH /api/keys/:id
func (h *APIKeyHandler) Update(c *gin.Context) {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return
	}

	var req updateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiKey, err := h.service.Update(c.Request.Context(), ownerID, id, service.UpdateKeyParams{
		Name:        req.Name,
		Permissions: req.Permissions,
		RateLimits:  req.RateLimits,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, apiKey)
}

// Handles POST /api/keys/:id/rotate
func (h *APIKeyHandler) Rotate(c *gin.Context) {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return
	}

	apiKey, secret, err := h.service.Rotate(c.Request.Context(), ownerID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":     secret,
		"api_key": apiKey,
		"message": secretNotice,
	})
}

// Handles DELETE /api/keys/:id
func (h *APIKeyHandler) Delete(c *gin.Context) {
	ownerID, id, ok := h.scope(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key deleted successfully"})
}

func (h *APIKeyHandler) scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	ownerID, ok := middleware.UserIDFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid API key ID"})
		return uuid.Nil, uuid.Nil, false
	}

	return ownerID, id, true
}
