package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlist_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat list service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatlist_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	syncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlist_sync_events_total",
			Help: "Total number of sync lifecycle events handled.",
		},
		[]string{"topic"},
	)
	refreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlist_refreshes_total",
			Help: "Total number of chat list refreshes from the local store.",
		},
		[]string{"result"},
	)
	displayLimit = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatlist_display_limit",
			Help: "Current display limit; -1 once unbounded.",
		},
	)
	metaCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlist_meta_cache_ops_total",
			Help: "Metadata cache operations by outcome.",
		},
		[]string{"op"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatlist_ws_active_connections",
			Help: "Number of active websocket subscribers.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatlist_ws_events_total",
			Help: "Total number of websocket events pushed to subscribers.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlist_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	amqpConsumeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatlist_amqp_consume_errors_total",
			Help: "Total number of AMQP deliveries that could not be decoded.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		syncEventsTotal,
		refreshesTotal,
		displayLimit,
		metaCacheOps,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		amqpConsumeErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncSyncEvent(topic string) {
	syncEventsTotal.WithLabelValues(topic).Inc()
}

func IncRefresh(result string) {
	refreshesTotal.WithLabelValues(result).Inc()
}

func SetDisplayLimit(limit int) {
	displayLimit.Set(float64(limit))
}

func IncMetaCache(op string) {
	metaCacheOps.WithLabelValues(op).Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncAMQPConsumeError() {
	amqpConsumeErrorsTotal.Inc()
}
