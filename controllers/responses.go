package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"campaign-messaging-api/middleware"
	"campaign-messaging-api/services"
	"campaign-messaging-api/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP statuses. Unknown errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	var mismatch *services.HeaderMismatchError
	switch {
	case errors.As(err, &mismatch):
		c.JSON(http.StatusBadRequest, gin.H{
			"success":            false,
			"error":              err.Error(),
			"missing_columns":    mismatch.Missing,
			"unexpected_columns": mismatch.Unexpected,
		})
		return
	case errors.Is(err, services.ErrCampaignNotFound),
		errors.Is(err, services.ErrProtectedMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	case errors.Is(err, services.ErrUploadInProgress):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	case errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, services.ErrTemplateHydration),
		errors.Is(err, services.ErrMissingTemplateOrParams),
		errors.Is(err, services.ErrEmptyUpload),
		errors.Is(err, services.ErrNoMessageToCompose),
		errors.Is(err, services.ErrUnknownCredential),
		errors.Is(err, utils.ErrMalformedCSV):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	case errors.Is(err, services.ErrSendFailed):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": services.ErrSendFailed.Error()})
		log.Printf("send failed: %v", err)
		return
	}

	log.Printf("request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
}

func campaignIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param("campaignId")))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid campaign id"})
		return 0, false
	}
	return id, true
}

func currentUserID(c *gin.Context) (int, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not authenticated"})
		return 0, false
	}
	return id, true
}
