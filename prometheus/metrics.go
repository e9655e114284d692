package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_login_total",
			Help: "Total number of admin login attempts",
		},
		[]string{"result"}, // "success" or "failure"
	)

	// Organization operation counter
	OrganizationOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_operations_total",
			Help: "Total number of organization operations",
		},
		[]string{"operation"}, // "create", "access", "update", "delete", "reconcile"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "stale_token", "login_failure"
	)

	// Registry and namespace desynchronization counter
	StoreInconsistencyCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_store_inconsistencies_total",
			Help: "Total number of registry and namespace desynchronizations",
		},
		[]string{"operation"},
	)

	// Status category counter
	StatusCodeCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "org_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category", "method", "path"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "org_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Store operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "org_db_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "org_info",
			Help: "Information about the organization service",
		},
		[]string{"version", "store_driver"},
	)

	// Live organizations as seen by the last reconcile
	ActiveOrganizationsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "org_active_organizations",
			Help: "Number of live organizations at the last reconcile",
		},
	)

	// Namespaces without an owning record at the last reconcile
	OrphanNamespacesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "org_orphan_namespaces",
			Help: "Number of namespaces without an owning organization at the last reconcile",
		},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(OrganizationOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(StoreInconsistencyCounter)
	prometheus.MustRegister(StatusCodeCategoryCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(ActiveOrganizationsGauge)
	prometheus.MustRegister(OrphanNamespacesGauge)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// SetServiceInfo publishes the running version and store driver
func SetServiceInfo(version, driver string) {
	InfoGauge.With(prometheus.Labels{"version": version, "store_driver": driver}).Set(1)
}

// TrackDBOperation measures store operation durations
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			if category := statusCategory(c.Response().Status); category != "" {
				StatusCodeCategoryCounter.WithLabelValues(category, method, endpoint).Inc()
			}

			return err
		}
	}
}

// RecordLogin records a login attempt
func RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	LoginCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordOrganizationOperation records an organization operation
func RecordOrganizationOperation(operation string) {
	OrganizationOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordStoreInconsistency records a registry and namespace desynchronization
func RecordStoreInconsistency(operation string) {
	StoreInconsistencyCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// UpdateReconcileGauges publishes the outcome of a reconcile run
func UpdateReconcileGauges(active, orphans int) {
	ActiveOrganizationsGauge.Set(float64(active))
	OrphanNamespacesGauge.Set(float64(orphans))
}
