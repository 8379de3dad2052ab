// Package metrics registers prometheus collectors for the pipeline and
// optionally exposes them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PostsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditlead_posts_fetched_total",
		Help: "Total posts fetched from sources",
	})
	PostsClassified = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditlead_posts_classified_total",
		Help: "Total posts classified",
	})
	OpportunitiesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditlead_opportunities_total",
		Help: "Total posts classified as opportunities",
	})
	RepliesComposed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditlead_replies_composed_total",
		Help: "Total replies drafted",
	})
	RepliesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditlead_replies_posted_total",
		Help: "Total replies successfully posted",
	})
	PostingErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditlead_posting_errors_total",
		Help: "Total reply posting failures",
	})
	FollowUpsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditlead_follow_ups_sent_total",
		Help: "Total follow-up replies sent",
	})
	ClassifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redditlead_classify_duration_seconds",
		Help:    "Classification call duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	GatewayErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redditlead_gateway_errors_total",
		Help: "Total source gateway call failures",
	}, []string{"call"})
)

func init() {
	prometheus.MustRegister(PostsFetched, PostsClassified, OpportunitiesFound,
		RepliesComposed, RepliesPosted, PostingErrors, FollowUpsSent,
		ClassifyDuration, GatewayErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g. ":9090").
// Empty addr disables the listener.
func StartServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveClassifyDuration records one classification call duration.
func ObserveClassifyDuration(start time.Time) {
	ClassifyDuration.Observe(time.Since(start).Seconds())
}

// IncGatewayError increments the failure counter for a gateway call.
func IncGatewayError(call string) { GatewayErrors.WithLabelValues(call).Inc() }
