package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the referral service.
// All methods are safe to call on a nil receiver.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Webhook pipeline
	WebhooksTotal           *prometheus.CounterVec
	WebhookRateLimitedTotal prometheus.Counter
	SuspiciousActivityTotal prometheus.Counter
	CampaignsAutoCreated    prometheus.Counter

	// Attribution
	ConversionsTotal *prometheus.CounterVec
	ClicksTotal      *prometheus.CounterVec
	CreditsUnlocked  *prometheus.CounterVec

	// Notifications
	NotificationsTotal *prometheus.CounterVec
	InvitesTotal       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance registered on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "referral_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		WebhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_webhooks_total",
				Help: "Total number of processed organization webhooks by response status",
			},
			[]string{"status"},
		),
		WebhookRateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "referral_webhooks_rate_limited_total",
				Help: "Total number of webhooks rejected by the per-campaign rate limit",
			},
		),
		SuspiciousActivityTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "referral_webhooks_suspicious_total",
				Help: "Total number of webhooks flagged by the abuse detector",
			},
		),
		CampaignsAutoCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "referral_campaigns_auto_created_total",
				Help: "Total number of campaigns auto-created from webhooks",
			},
		),
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_conversions_total",
				Help: "Total number of conversion attempts by source and outcome",
			},
			[]string{"source", "status"},
		),
		ClicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_clicks_total",
				Help: "Total number of referral link visits by outcome",
			},
			[]string{"outcome"},
		),
		CreditsUnlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_credits_unlocked_total",
				Help: "Total number of credits moved from pending to available",
			},
			[]string{"policy"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_notifications_total",
				Help: "Total number of referrer notifications by result",
			},
			[]string{"result"},
		),
		InvitesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_invites_total",
				Help: "Total number of campaign invitations by result",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WebhooksTotal,
		m.WebhookRateLimitedTotal,
		m.SuspiciousActivityTotal,
		m.CampaignsAutoCreated,
		m.ConversionsTotal,
		m.ClicksTotal,
		m.CreditsUnlocked,
		m.NotificationsTotal,
		m.InvitesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) ObserveWebhook(status int) {
	if m != nil {
		m.WebhooksTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

func (m *Metrics) IncRateLimited() {
	if m != nil {
		m.WebhookRateLimitedTotal.Inc()
	}
}

func (m *Metrics) IncSuspicious() {
	if m != nil {
		m.SuspiciousActivityTotal.Inc()
	}
}

func (m *Metrics) IncCampaignAutoCreated() {
	if m != nil {
		m.CampaignsAutoCreated.Inc()
	}
}

// IncConversion source is "webhook" or "pixel"
func (m *Metrics) IncConversion(source, status string) {
	if m != nil {
		m.ConversionsTotal.WithLabelValues(source, status).Inc()
	}
}

func (m *Metrics) IncClick(outcome string) {
	if m != nil {
		m.ClicksTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AddCreditsUnlocked(policy string, n int64) {
	if m != nil && n > 0 {
		m.CreditsUnlocked.WithLabelValues(policy).Add(float64(n))
	}
}

func (m *Metrics) IncNotification(result string) {
	if m != nil {
		m.NotificationsTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncInvite(result string) {
	if m != nil {
		m.InvitesTotal.WithLabelValues(result).Inc()
	}
}
