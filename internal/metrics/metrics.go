package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	PostsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blog_posts_created_total",
			Help: "Total number of posts created",
		},
	)

	PostsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blog_posts_deleted_total",
			Help: "Total number of posts deleted",
		},
	)

	// LoginAttempts counts logins by result (success, failure).
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	// UploadsRejected counts rejected image uploads by reason (type, size).
	UploadsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_uploads_rejected_total",
			Help: "Total number of rejected image uploads by reason",
		},
		[]string{"reason"},
	)

	// CleanupFailures counts best-effort file removals that failed.
	CleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blog_cleanup_failures_total",
			Help: "Total number of upload files that could not be removed",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	uploadPath         = regexp.MustCompile(`^/uploads/.+`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, PostsCreated, PostsDeleted,
			LoginAttempts, UploadsRejected, CleanupFailures)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}
// and upload file names with {name}. E.g. /post/12/edit -> /post/{id}/edit.
func NormalizePath(path string) string {
	if uploadPath.MatchString(path) {
		return "/uploads/{name}"
	}
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncPostsCreated() { PostsCreated.Inc() }

func IncPostsDeleted() { PostsDeleted.Inc() }

// IncLoginAttempts increments the login counter for result (success, failure).
func IncLoginAttempts(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

// IncUploadsRejected increments the rejected upload counter for reason (type, size).
func IncUploadsRejected(reason string) {
	UploadsRejected.WithLabelValues(reason).Inc()
}

func IncCleanupFailures() { CleanupFailures.Inc() }
