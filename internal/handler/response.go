package handler

import (
	"net/http"

	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// writeError отвечает статусом из service.Classify.
// Для 5xx клиент получает fallback, текст ошибки уходит только в лог.
func writeError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status, code := service.Classify(err)

	if status >= http.StatusInternalServerError {
		logger.Error(fallback,
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(status, ErrorResponse{Error: code, Message: fallback})
		return
	}

	logger.Warn("Request rejected",
		zap.String("path", c.Request.URL.Path),
		zap.String("code", code),
		zap.Error(err),
	)
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: code, Message: message})
}
