// Package metrics exposes Prometheus collectors for the auth core and the HTTP layer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values for ResolutionsTotal.
const (
	SourceFormToken     = "form_token"
	SourceBasicToken    = "basic_token"
	SourceBasicPassword = "basic_password"
	SourceNone          = "none"

	OutcomeIdentity  = "identity"
	OutcomeAnonymous = "anonymous"
	OutcomeExpired   = "expired"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

var (
	// ResolutionsTotal counts identity resolutions by credential source and outcome.
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebauth_identity_resolutions_total",
			Help: "Identity resolutions",
		},
		[]string{"source", "outcome"},
	)

	// GateDecisionsTotal counts privilege gate decisions.
	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebauth_gate_decisions_total",
			Help: "Privilege gate decisions",
		},
		[]string{"required", "decision"},
	)

	// TokensIssuedTotal counts tokens minted by GetToken.
	TokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ebauth_tokens_issued_total",
			Help: "Tokens issued",
		},
	)

	// AdminOperationsTotal counts directory administration calls by result.
	AdminOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebauth_admin_operations_total",
			Help: "Directory administration operations",
		},
		[]string{"op", "result"},
	)

	// StoreOperationDuration records credential store latency.
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ebauth_store_operation_duration_seconds",
			Help:    "Credential store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	// RequestsTotal counts HTTP requests by route pattern and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebauth_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		ResolutionsTotal,
		GateDecisionsTotal,
		TokensIssuedTotal,
		AdminOperationsTotal,
		StoreOperationDuration,
		RequestsTotal,
	)
}
