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
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_http_requests_total",
			Help: "Total number of HTTP requests processed by the swap service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swap_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swap_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_realtime_events_total",
			Help: "Total number of realtime events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	messagesPostedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_messages_posted_total",
			Help: "Messages stored, by message type.",
		},
		[]string{"type"},
	)
	proposalTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_proposal_transitions_total",
			Help: "Proposal state changes, by resulting status.",
		},
		[]string{"status"},
	)
	attachmentUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_attachment_uploads_total",
			Help: "Attachment uploads, by outcome.",
		},
		[]string{"outcome"},
	)
	digestEmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_unread_digest_emails_total",
			Help: "Unread digest emails, by outcome.",
		},
		[]string{"outcome"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swap_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		realtimeEventsTotal,
		messagesPostedTotal,
		proposalTransitionsTotal,
		attachmentUploadsTotal,
		digestEmailsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncRealtimeEvent(eventType, outcome string) {
	realtimeEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func IncMessagePosted(messageType string) {
	if messageType == "" {
		messageType = "plain"
	}
	messagesPostedTotal.WithLabelValues(messageType).Inc()
}

func IncProposalTransition(status string) {
	proposalTransitionsTotal.WithLabelValues(status).Inc()
}

func IncAttachmentUpload(outcome string) {
	attachmentUploadsTotal.WithLabelValues(outcome).Inc()
}

func IncDigestEmail(outcome string) {
	digestEmailsTotal.WithLabelValues(outcome).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
