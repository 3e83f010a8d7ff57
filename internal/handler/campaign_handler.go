package handler

import (
	"context"
	"net/http"

	"github.com/SergeiKhy/referral-service/internal/middleware"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaigns service.CampaignService
	invites   service.InviteService
	logger    *zap.Logger
}

func NewCampaignHandler(campaigns service.CampaignService, invites service.InviteService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		invites:   invites,
		logger:    logger,
	}
}

// CreateCampaign godoc
// @Summary Create a draft campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param X-Organizer-ID header string true "Organizer user id"
// @Param request body models.CreateCampaignInput true "Campaign"
// @Success 201 {object} models.Campaign
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var input models.CreateCampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}
	input.OrganizerID, _ = middleware.OrganizerIDFromContext(c)

	campaign, err := h.campaigns.Create(c.Request.Context(), &input)
	if err != nil {
		writeError(c, h.logger, err, "Failed to create campaign")
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// GetCampaign godoc
// @Summary Get a campaign
// @Tags campaigns
// @Produce json
// @Param id path string true "Campaign id"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	h.withCampaign(c, "Failed to load campaign", h.campaigns.Get)
}

// ActivateCampaign godoc
// @Summary Move a draft campaign to active
// @Tags campaigns
// @Produce json
// @Param id path string true "Campaign id"
// @Success 200 {object} models.Campaign
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/campaigns/{id}/activate [post]
func (h *CampaignHandler) ActivateCampaign(c *gin.Context) {
	h.withCampaign(c, "Failed to activate campaign", h.campaigns.Activate)
}

// ArchiveCampaign godoc
// @Summary Archive an active campaign
// @Tags campaigns
// @Produce json
// @Param id path string true "Campaign id"
// @Success 200 {object} models.Campaign
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/campaigns/{id}/archive [post]
func (h *CampaignHandler) ArchiveCampaign(c *gin.Context) {
	h.withCampaign(c, "Failed to archive campaign", h.campaigns.Archive)
}

// UnarchiveCampaign godoc
// @Summary Restore an archived campaign to active
// @Tags campaigns
// @Produce json
// @Param id path string true "Campaign id"
// @Success 200 {object} models.Campaign
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/campaigns/{id}/unarchive [post]
func (h *CampaignHandler) UnarchiveCampaign(c *gin.Context) {
	h.withCampaign(c, "Failed to unarchive campaign", h.campaigns.Unarchive)
}

// SendInvites godoc
// @Summary Send campaign invitations with unique referral links
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path string true "Campaign id"
// @Param request body models.SendInvitesInput true "Recipients"
// @Success 200 {object} models.SendResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/campaigns/{id}/send [post]
func (h *CampaignHandler) SendInvites(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Campaign id must be a UUID")
		return
	}

	var input models.SendInvitesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}
	organizerID, _ := middleware.OrganizerIDFromContext(c)

	result, err := h.invites.Send(c.Request.Context(), organizerID, id, input.Contacts)
	if err != nil {
		writeError(c, h.logger, err, "Failed to send invites")
		return
	}

	c.JSON(http.StatusOK, result)
}

type campaignOp func(ctx context.Context, organizerID, id uuid.UUID) (*models.Campaign, error)

func (h *CampaignHandler) withCampaign(c *gin.Context, fallback string, op campaignOp) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Campaign id must be a UUID")
		return
	}
	organizerID, _ := middleware.OrganizerIDFromContext(c)

	campaign, err := op(c.Request.Context(), organizerID, id)
	if err != nil {
		writeError(c, h.logger, err, fallback)
		return
	}

	c.JSON(http.StatusOK, campaign)
}
