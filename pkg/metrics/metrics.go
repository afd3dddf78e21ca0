package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	CampaignsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_campaigns_accepted_total", Help: "Campaigns accepted by the API"},
		[]string{"mode"}, // immediate | scheduled
	)
	RecipientsExtracted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "api_campaign_recipients",
			Help:    "Unique recipients extracted per accepted campaign",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
	)
	ScheduledPublished = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scheduler_campaigns_published_total", Help: "Due scheduled campaigns published to the queue"},
	)

	WorkerSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "worker_dispatch_sweeps_total", Help: "Dispatch sweeps processed"},
	)
	WorkerRecipientsSent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "worker_recipients_sent_total", Help: "Recipients sent successfully"},
	)
	WorkerRecipientsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "worker_recipients_failed_total", Help: "Recipients that failed to send"},
	)
	WorkerSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_dispatch_sweep_duration_seconds",
			Help:    "Time spent on one dispatch sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal, APIRequestDuration, CampaignsAccepted, RecipientsExtracted,
		ScheduledPublished, WorkerSweeps, WorkerRecipientsSent, WorkerRecipientsFailed, WorkerSweepDuration,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
