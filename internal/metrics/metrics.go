package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Forum activity
	TopicsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forum_topics_created_total",
			Help: "Topics created (each with its opening post)",
		},
	)
	PostsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forum_posts_created_total",
			Help: "Posts created, opening posts included",
		},
	)
	AchievementsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_achievements_granted_total",
			Help: "Achievements granted by rule name",
		},
		[]string{"name"},
	)

	// Document store
	DocumentLoadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_load_failures_total",
			Help: "Document loads that degraded to an empty collection",
		},
		[]string{"document"},
	)
	DocumentCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_commits_total",
			Help: "Document store commits by result",
		},
		[]string{"result"}, // ok|error
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// /metrics endpoint handler
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, RequestDuration)
		prometheus.MustRegister(TopicsCreated)
		prometheus.MustRegister(PostsCreated)
		prometheus.MustRegister(AchievementsGranted)
		prometheus.MustRegister(DocumentLoadFailures)
		prometheus.MustRegister(DocumentCommits)
		prometheus.MustRegister(WorkerQueueDepth)
	})
}
