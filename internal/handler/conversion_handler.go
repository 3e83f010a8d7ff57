package handler

import (
	"net/http"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConversionHandler struct {
	conversions service.ConversionService
	logger      *zap.Logger
}

func NewConversionHandler(conversions service.ConversionService, logger *zap.Logger) *ConversionHandler {
	return &ConversionHandler{
		conversions: conversions,
		logger:      logger,
	}
}

// TrackConversion godoc
// @Summary Record a purchase from the checkout pixel
// @Tags pixel
// @Accept json
// @Produce json
// @Param request body models.ConversionInput true "Conversion"
// @Success 200 {object} models.ConversionOutcome
// @Failure 400 {object} ErrorResponse
// @Router /api/conversion [post]
func (h *ConversionHandler) TrackConversion(c *gin.Context) {
	var input models.ConversionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid_payload", "Invalid JSON payload")
		return
	}

	outcome, err := h.conversions.Track(c.Request.Context(), &input)
	if err != nil {
		writeError(c, h.logger, err, "Failed to track conversion")
		return
	}

	c.JSON(http.StatusOK, outcome)
}
