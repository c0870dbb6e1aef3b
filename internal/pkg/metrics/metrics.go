package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommentsSubmitted counts accepted comment submissions by outcome
	// ("published" or "pending").
	CommentsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mx_comments_submitted_total",
		Help: "Total number of accepted comment submissions by outcome",
	}, []string{"status"})

	// CommentsRejected counts submissions refused by validation, captcha or spam rules.
	CommentsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mx_comments_rejected_total",
		Help: "Total number of rejected comment submissions by reason",
	}, []string{"reason"})

	// NotificationsSent counts notification mails by kind
	// ("admin", "subscriber", "optin").
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mx_comments_notifications_sent_total",
		Help: "Total number of notification mails handed to the mailer",
	}, []string{"kind"})

	// SubscriptionEvents counts subscription lifecycle events.
	SubscriptionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mx_comments_subscription_events_total",
		Help: "Total subscription lifecycle events by type",
	}, []string{"event"})

	// MailErrors counts mailer failures by kind.
	MailErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mx_comments_mail_errors_total",
		Help: "Total number of failed mail deliveries",
	}, []string{"kind"})

	// RequestLatency records HTTP handler latency by route.
	RequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mx_comments_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware observes request latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestLatency.WithLabelValues(c.Request.Method, route, statusClass(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
