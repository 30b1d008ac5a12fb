package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedpulse_alert_runs_total",
		Help: "Alert evaluation runs, labelled by trigger source.",
	}, []string{"source"})

	RulesTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedpulse_alert_rules_triggered_total",
		Help: "Rules whose rolling average breached the threshold.",
	})

	KeywordMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedpulse_alert_keyword_matches_total",
		Help: "Critical keywords found in recent free-text answers.",
	})

	DigestsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedpulse_alert_digests_sent_total",
		Help: "Per-recipient digest delivery attempts.",
	}, []string{"outcome"})

	NotificationsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedpulse_notifications_recorded_total",
		Help: "In-app notifications written to the inbox.",
	}, []string{"severity"})
)

func RegisterMetricsRoute(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
