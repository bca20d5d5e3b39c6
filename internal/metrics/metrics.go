package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbywatch/arbywatch/internal/logging"
)

var (
	FetchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbywatch_fetch_attempts_total", Help: "upstream fetch attempts"}, []string{"kind", "outcome"})
	FetchExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbywatch_fetch_exhausted_total", Help: "fetches that failed all retry attempts"}, []string{"kind"})
	PipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbywatch_pipeline_runs_total", Help: "assembly pipeline runs"}, []string{"trigger"})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "arbywatch_notifications_total", Help: "chat notifications"}, []string{"status"})
	TierHintMismatches = prometheus.NewCounter(prometheus.CounterOpts{Name: "arbywatch_tier_hint_mismatch_total", Help: "curated tier disagreed with the schedule page hint"})
)

func init() {
	prometheus.MustRegister(FetchAttempts, FetchExhausted, PipelineRuns, Notifications, TierHintMismatches)
}

// Serve exposes /metrics plus whatever the caller mounted on mux.
func Serve(addr string, mux *http.ServeMux, log *logging.Logger) {
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warnw("metrics server stopped", "err", err)
	}
}
