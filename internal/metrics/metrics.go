package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srivastavahk/TaskFlow/internal/health"
)

var (
	// Authentication

	TokenVerifyFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "token_verify_failures_total",
		Help:      "Bearer tokens that failed verification, by reason.",
	}, []string{"reason"})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "logins_total",
		Help:      "Login attempts, by outcome.",
	}, []string{"outcome"})

	RateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by route.",
	}, []string{"route"})

	// Authorization

	AuthzDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "authz_denials_total",
		Help:      "Team authorization checks that denied access, by check.",
	}, []string{"check"})

	// Invitations

	InvitationsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "invitations_issued_total",
		Help:      "Invitations created.",
	})

	InvitationRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "invitation_redemptions_total",
		Help:      "Invitation accept attempts, by outcome.",
	}, []string{"outcome"})

	// Sweeper

	InvitationsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "invitations_swept_total",
		Help:      "Long-expired invitations removed by the sweeper.",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "taskflow",
		Name:      "sweep_duration_seconds",
		Help:      "Time taken for one sweeper run.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "taskflow",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskflow",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "taskflow",
		Name:      "http_requests_in_flight",
		Help:      "Requests currently being served.",
	})
)

func Register() {
	prometheus.MustRegister(
		TokenVerifyFailuresTotal,
		LoginsTotal,
		RateLimitedTotal,
		AuthzDenialsTotal,
		InvitationsIssuedTotal,
		InvitationRedemptionsTotal,
		InvitationsSweptTotal,
		SweepDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
		HTTPRequestsInFlight,
	)
}

// NewServer serves /metrics plus liveness and readiness probes on a port
// kept off the public router.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if result.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}
