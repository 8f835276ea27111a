package controllers

import (
	"net/http"
	"strings"

	"campaign-messaging-api/services"

	"github.com/gin-gonic/gin"
)

// ProtectedController lets recipients open their protected message.
type ProtectedController struct {
	Store services.ProtectedMessageStore
}

type retrieveProtectedRequest struct {
	PasswordHash string `json:"password_hash" binding:"required"`
}

// POST /api/v1/protect/:id
func (h *ProtectedController) Retrieve(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid id"})
		return
	}

	var req retrieveProtectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "password_hash is required"})
		return
	}

	msg, err := h.Store.Retrieve(c.Request.Context(), id, req.PasswordHash)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      msg.ID,
		"payload": msg.Payload,
		"version": msg.Version,
	})
}
