package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

const shutdownTimeout = 5 * time.Second

var (
	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swearbot_violations_total",
			Help: "Total number of messages flagged as violations",
		},
		[]string{"detector"},
	)

	escalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swearbot_escalations_total",
			Help: "Total number of escalations (warning reply and timeout)",
		},
	)

	gatewayFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swearbot_gateway_failures_total",
			Help: "Total number of failed gateway operations",
		},
		[]string{"operation"},
	)

	classifierRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swearbot_classifier_request_duration_seconds",
			Help:    "Time spent waiting for the text classifier",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	messageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swearbot_message_processing_duration_seconds",
			Help:    "Time spent processing messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	registerOnce sync.Once
)

// Component serves metrics and owns the tracer provider.
type Component struct {
	addr     string
	server   *http.Server
	provider *trace.TracerProvider
	done     chan struct{}
}

// New returns an observability component. An empty addr disables the metrics
// endpoint; metrics are still collected.
func New(addr string) *Component {
	return &Component{addr: addr}
}

func (c *Component) Start(ctx context.Context) error {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			violationsTotal,
			escalationsTotal,
			gatewayFailuresTotal,
			classifierRequestDuration,
			messageProcessingDuration,
		)
	})

	c.provider = trace.NewTracerProvider()
	otel.SetTracerProvider(c.provider)

	if c.addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	c.server = &http.Server{
		Addr:              c.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", c.addr).Info("metrics endpoint started")
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var stopErr error
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			stopErr = errors.Join(stopErr, err)
		}
		<-c.done
	}
	if c.provider != nil {
		if err := c.provider.Shutdown(ctx); err != nil {
			stopErr = errors.Join(stopErr, err)
		}
	}
	return stopErr
}

// RecordViolation counts a flagged message by the detector that flagged it
func RecordViolation(detector string) {
	violationsTotal.WithLabelValues(detector).Inc()
}

// RecordEscalation counts an escalation decision
func RecordEscalation() {
	escalationsTotal.Inc()
}

// RecordGatewayFailure counts a failed react/reply/member/timeout call
func RecordGatewayFailure(operation string) {
	gatewayFailuresTotal.WithLabelValues(operation).Inc()
}

// ObserveClassifierRequest records one classifier round trip
func ObserveClassifierRequest(status string, elapsed time.Duration) {
	classifierRequestDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// StartMessageProcessing returns a function to record message processing duration
func StartMessageProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		messageProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
