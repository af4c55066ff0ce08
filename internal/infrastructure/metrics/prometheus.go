package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "travel_desk"

// Registry owns the service collectors on a private prometheus registry
type Registry struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates and registers every collector
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Accepted workflow transitions by role, action and target status.",
		}, []string{"role", "action", "status"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_rejections_total",
			Help:      "Rejected workflow actions by role and reason.",
		}, []string{"role", "reason"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and outcome.",
		}, []string{"channel", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.transitions,
		r.rejections,
		r.notifications,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

var _ port.WorkflowMetrics = (*Registry)(nil)

func (r *Registry) ObserveTransition(role workflow.Role, action workflow.Action, to workflow.Status) {
	r.transitions.WithLabelValues(role.String(), action.String(), to.String()).Inc()
}

func (r *Registry) ObserveRejection(role workflow.Role, reason string) {
	r.rejections.WithLabelValues(role.String(), reason).Inc()
}

func (r *Registry) ObserveNotification(channel, status string) {
	r.notifications.WithLabelValues(channel, status).Inc()
}

// Handler exposes the registry in the prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// GinMiddleware records request counts and latency per matched route.
// Unmatched paths share one label to keep cardinality bounded.
func (r *Registry) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		r.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
