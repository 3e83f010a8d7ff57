package handler

import (
	"net/http"
	"strings"

	"github.com/SergeiKhy/referral-service/internal/models"
	"github.com/SergeiKhy/referral-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	referralCookie       = "referral_code"
	referralCookieMaxAge = 30 * 24 * 60 * 60
)

type ClickHandler struct {
	tracker      service.ClickTracker
	secureCookie bool
	logger       *zap.Logger
}

func NewClickHandler(tracker service.ClickTracker, secureCookie bool, logger *zap.Logger) *ClickHandler {
	return &ClickHandler{
		tracker:      tracker,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type TrackClickRequest struct {
	RefCode string `json:"ref_code"`
	PageURL string `json:"page_url,omitempty"`
}

// Redirect godoc
// @Summary Follow a referral link
// @Tags links
// @Param code path string true "Referral code"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /r/{code} [get]
func (h *ClickHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	outcome, err := h.tracker.Track(c.Request.Context(), code, models.ClickMeta{
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		ReferrerURL: c.Request.Referer(),
	})
	if err != nil {
		writeError(c, h.logger, err, "Failed to follow referral link")
		return
	}

	if outcome.Kind == service.ClickExpired {
		c.Redirect(http.StatusFound, outcome.RedirectURL)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(referralCookie, outcome.Code, referralCookieMaxAge, "/", "", h.secureCookie, true)
	c.Redirect(http.StatusFound, outcome.RedirectURL)
}

// TrackClick godoc
// @Summary Record a page view from the organizer site pixel
// @Tags pixel
// @Accept json
// @Produce json
// @Param request body TrackClickRequest true "Page view"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/track-click [post]
func (h *ClickHandler) TrackClick(c *gin.Context) {
	var req TrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_payload", "Invalid JSON payload")
		return
	}

	code := strings.TrimSpace(req.RefCode)
	if code == "" {
		badRequest(c, "missing_ref_code", service.ErrMissingRefCode.Error())
		return
	}

	referrer := req.PageURL
	if referrer == "" {
		referrer = c.Request.Referer()
	}

	ip := ""
	if p := requestIP(c.Request); p != nil {
		ip = *p
	}

	err := h.tracker.TrackPageView(c.Request.Context(), code, models.ClickMeta{
		IPAddress:   ip,
		UserAgent:   c.Request.UserAgent(),
		ReferrerURL: referrer,
	})
	if err != nil {
		writeError(c, h.logger, err, "Failed to track click")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
