package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	wsState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_client_ws_state",
			Help: "Live channel state (0 disconnected, 1 connecting, 2 connected).",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_ws_events_total",
			Help: "Total number of live channel events by direction.",
		},
		[]string{"direction", "event"},
	)
	wsReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_ws_reconnects_total",
			Help: "Total number of live channel reconnects.",
		},
	)
	wsDroppedEmitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_ws_dropped_emits_total",
			Help: "Outbound events dropped because the channel was not connected.",
		},
		[]string{"event"},
	)
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_api_requests_total",
			Help: "Total number of API requests issued by the client.",
		},
		[]string{"op", "status"},
	)
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_client_api_request_duration_seconds",
			Help:    "API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	notificationsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_client_notifications_pending",
			Help: "Unread notification entries currently held.",
		},
	)
	presenceOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_client_presence_online",
			Help: "Users in the latest presence snapshot.",
		},
	)
	grpcClientHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_grpc_client_handled_total",
			Help: "Total number of gRPC calls completed by the client.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	viewRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_view_http_requests_total",
			Help: "Total number of requests served by the local view.",
		},
		[]string{"method", "route", "status"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		wsState,
		wsEventsTotal,
		wsReconnectsTotal,
		wsDroppedEmitsTotal,
		apiRequestsTotal,
		apiRequestDuration,
		notificationsPending,
		presenceOnline,
		grpcClientHandledTotal,
		viewRequestsTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware counts requests served by the local view.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		viewRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// GRPCClientMetricsUnaryInterceptor counts completed unary calls by status code.
func GRPCClientMetricsUnaryInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		err := invoker(ctx, method, req, reply, cc, opts...)
		service, name := splitFullMethod(method)
		grpcClientHandledTotal.WithLabelValues(service, name, status.Code(err).String()).Inc()
		return err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func SetWSState(state int) {
	wsState.Set(float64(state))
}

func IncWSEvent(direction, event string) {
	wsEventsTotal.WithLabelValues(direction, event).Inc()
}

func IncWSReconnect() {
	wsReconnectsTotal.Inc()
}

func IncWSDroppedEmit(event string) {
	wsDroppedEmitsTotal.WithLabelValues(event).Inc()
}

// ObserveAPIRequest records one request/response round trip.
func ObserveAPIRequest(op string, statusCode int, started time.Time) {
	label := "error"
	if statusCode > 0 {
		label = strconv.Itoa(statusCode)
	}
	apiRequestsTotal.WithLabelValues(op, label).Inc()
	apiRequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func SetNotificationsPending(n int) {
	notificationsPending.Set(float64(n))
}

func SetPresenceOnline(n int) {
	presenceOnline.Set(float64(n))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
