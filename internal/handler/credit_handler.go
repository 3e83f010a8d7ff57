package handler

import (
	"fmt"
	"net/http"

	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CreditHandler struct {
	unlocker service.CreditUnlocker
	logger   *zap.Logger
}

func NewCreditHandler(unlocker service.CreditUnlocker, logger *zap.Logger) *CreditHandler {
	return &CreditHandler{
		unlocker: unlocker,
		logger:   logger,
	}
}

type UnlockResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UnlockedCount int64  `json:"unlocked_count"`
	Timestamp     string `json:"timestamp"`
}

// UnlockCredits godoc
// @Summary Unlock pending credits whose policy is satisfied
// @Tags credits
// @Produce json
// @Success 200 {object} UnlockResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/credits/unlock [post]
func (h *CreditHandler) UnlockCredits(c *gin.Context) {
	result, err := h.unlocker.UnlockDueCredits(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to unlock credits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "unlock_failed",
			Message: "Failed to unlock credits",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, UnlockResponse{
		Success:       true,
		Message:       fmt.Sprintf("Unlocked %d credits", result.UnlockedCount),
		UnlockedCount: result.UnlockedCount,
		Timestamp:     result.RanAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}
