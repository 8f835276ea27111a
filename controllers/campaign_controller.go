package controllers

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"campaign-messaging-api/config"
	"campaign-messaging-api/models"
	"campaign-messaging-api/services"
	"campaign-messaging-api/utils"

	"github.com/gin-gonic/gin"
)

// CampaignController serves the authenticated campaign endpoints.
type CampaignController struct {
	Campaigns  services.CampaignStore
	Pipeline   *services.UploadPipeline
	Dispatcher *services.Dispatcher
	Hydrator   *services.TemplateHydrator
	Upload     config.UploadSettings
}

// ownedCampaign resolves a campaign of any channel that belongs to userID.
func (h *CampaignController) ownedCampaign(ctx context.Context, campaignID, userID int) (*models.Campaign, error) {
	campaign, err := h.Campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.UserID != userID {
		return nil, services.ErrCampaignNotFound
	}
	return campaign, nil
}

// POST /api/v1/campaigns/:campaignId/upload (multipart field "file")
func (h *CampaignController) UploadRecipients(c *gin.Context) {
	campaignID, ok := campaignIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	maxBytes := h.Upload.MaxFileSizeMB << 20
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	// Leave headroom for the multipart envelope around the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}
	if file.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "file is too large"})
		return
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".csv" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "only .csv files are accepted"})
		return
	}

	campaign, err := h.ownedCampaign(c.Request.Context(), campaignID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "cannot read uploaded file"})
		return
	}
	defer src.Close()

	reader := utils.NewCSVChunkReader(src, h.Upload.ChunkSize)
	result, err := h.Pipeline.Upload(c.Request.Context(), campaign, reader)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "upload": result})
}

// GET /api/v1/campaigns/:campaignId/preview
func (h *CampaignController) Preview(c *gin.Context) {
	campaignID, ok := campaignIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	campaign, err := h.Dispatcher.FindOwnedCampaign(c.Request.Context(), campaignID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	opts := services.RenderOptions{EscapeHTML: campaign.Type == models.ChannelEmail}
	rendered, err := h.Hydrator.HydratePreview(c.Request.Context(), campaignID, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	if rendered == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "nothing to preview: upload recipients first"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "preview": rendered})
}

// POST /api/v1/campaigns/:campaignId/credentials/default
func (h *CampaignController) BindDefaultCredential(c *gin.Context) {
	campaignID, ok := campaignIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if _, err := h.Dispatcher.FindOwnedCampaign(c.Request.Context(), campaignID, userID); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Dispatcher.BindDefaultCredential(c.Request.Context(), campaignID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cred_name": h.Dispatcher.DefaultCredential()})
}

type testSendRequest struct {
	Recipient string `json:"recipient" binding:"required"`
}

// POST /api/v1/campaigns/:campaignId/test-send
func (h *CampaignController) TestSend(c *gin.Context) {
	campaignID, ok := campaignIDParam(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req testSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "recipient is required"})
		return
	}
	recipient := services.NormalizeRecipient(req.Recipient)
	if !utils.ValidateEmail(recipient) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid recipient email"})
		return
	}

	ctx := c.Request.Context()
	campaign, err := h.Dispatcher.FindOwnedCampaign(ctx, campaignID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	credential := campaign.CredentialName()
	if credential == "" {
		if err := h.Dispatcher.BindDefaultCredential(ctx, campaignID); err != nil {
			respondError(c, err)
			return
		}
		credential = h.Dispatcher.DefaultCredential()
	}

	messageID, err := h.Dispatcher.Dispatch(ctx, campaignID, recipient, credential)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message_id": messageID,
		"recipient":  recipient,
		"credential": credential,
	})
}
