package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Campaign Messaging API is running",
	})
}
