package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveWebhook(201)
		m.IncRateLimited()
		m.IncSuspicious()
		m.IncCampaignAutoCreated()
		m.IncConversion("pixel", "success")
		m.IncClick("redirect")
		m.AddCreditsUnlocked("delayed", 3)
		m.IncNotification("sent")
		m.IncInvite("failed")
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveWebhook(201)
	m.ObserveWebhook(201)
	m.ObserveWebhook(429)
	m.AddCreditsUnlocked("event_based", 4)
	m.AddCreditsUnlocked("event_based", 0)
	m.IncInvite("sent")

	assert.Equal(t, float64(2), counterValue(t, m.WebhooksTotal.WithLabelValues("201")))
	assert.Equal(t, float64(1), counterValue(t, m.WebhooksTotal.WithLabelValues("429")))
	assert.Equal(t, float64(4), counterValue(t, m.CreditsUnlocked.WithLabelValues("event_based")))
	assert.Equal(t, float64(1), counterValue(t, m.InvitesTotal.WithLabelValues("sent")))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.GinMiddleware())
	router.GET("/r/:code", func(c *gin.Context) {
		c.Status(http.StatusFound)
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/r/ABCD1234", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)

	assert.Equal(t, float64(1), counterValue(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/r/:code", "302")))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "referral_http_requests_total")
}
