package handler

import (
	"net/http"

	"github.com/SergeiKhy/referral-service/internal/middleware"
	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profiles service.ProfileService
	logger   *zap.Logger
}

func NewProfileHandler(profiles service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

type ProfileResponse struct {
	Success bool                     `json:"success"`
	Data    *models.OrganizerProfile `json:"data"`
}

// GetProfile godoc
// @Summary Get organizer webhook settings
// @Tags profile
// @Produce json
// @Param X-Organizer-ID header string true "Organizer user id"
// @Success 200 {object} ProfileResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.OrganizerIDFromContext(c)

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Success: true, Data: profile})
}

// SaveProfile godoc
// @Summary Create or update organizer webhook settings
// @Description Issues a client id on first save
// @Tags profile
// @Accept json
// @Produce json
// @Param X-Organizer-ID header string true "Organizer user id"
// @Param request body models.UpdateProfileInput true "Settings"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/profile [put]
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	var input models.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid_payload", err.Error())
		return
	}
	input.UserID, _ = middleware.OrganizerIDFromContext(c)

	profile, err := h.profiles.Save(c.Request.Context(), &input)
	if err != nil {
		writeError(c, h.logger, err, "Failed to save profile")
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Success: true, Data: profile})
}
