package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/middleware"
	"github.com/klya-ai/klya-api/internal/service"
)

// AccountHandler serves the key-authenticated /v1/me endpoints.
type AccountHandler struct {
	auth *service.AuthService
	log  *slog.Logger
}

func NewAccountHandler(auth *service.AuthService, log *slog.Logger) *AccountHandler {
	return &AccountHandler{auth: auth, log: log}
}

// Handles GET /v1/me
func (h *AccountHandler) Get(c *gin.Context) {
	apiKey := middleware.APIKeyFrom(c)

	user := apiKey.Owner
	if user == nil {
		var err error
		if user, err = h.auth.GetUserByID(c.Request.Context(), apiKey.OwnerID); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"api_key": apiKey,
	})
}

// Handles PATCH /v1/me
func (h *AccountHandler) Update(c *gin.Context) {
	apiKey := middleware.APIKeyFrom(c)

	var req struct {
		Name         *string `json:"name"`
		BusinessName *string `json:"business_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), apiKey.OwnerID, service.ProfileParams{
		Name:         req.Name,
		BusinessName: req.BusinessName,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
