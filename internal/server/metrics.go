package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for Prometheus
var (
	usersTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "movie_bot_users_total",
		Help: "Total number of users in database",
	})

	itemsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "movie_bot_items_total",
		Help: "Total number of catalog items in database",
	})

	gateDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movie_bot_gate_decisions_total",
		Help: "Total number of access gate decisions",
	}, []string{"result"})

	oracleFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movie_bot_oracle_failures_total",
		Help: "Total number of failed subscription checks",
	}, []string{"reason"})

	intentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movie_bot_intents_total",
		Help: "Total number of resolved user intents",
	}, []string{"intent"})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movie_bot_errors_total",
		Help: "Total number of errors",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(usersTotal)
	prometheus.MustRegister(itemsTotal)
	prometheus.MustRegister(gateDecisionsTotal)
	prometheus.MustRegister(oracleFailuresTotal)
	prometheus.MustRegister(intentsTotal)
	prometheus.MustRegister(errorsTotal)
}

// UpdateCounts updates the users_total and items_total gauges
func UpdateCounts(users, items int64) {
	usersTotal.Set(float64(users))
	itemsTotal.Set(float64(items))
}

// RecordGateDecision records an allowed or denied gate check
func RecordGateDecision(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	gateDecisionsTotal.WithLabelValues(result).Inc()
}

// RecordOracleFailure records a failed subscription check by reason
func RecordOracleFailure(reason string) {
	oracleFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordIntent records a resolved intent
func RecordIntent(intent string) {
	intentsTotal.WithLabelValues(intent).Inc()
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
