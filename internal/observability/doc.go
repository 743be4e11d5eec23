// Package observability provides logging, metrics, and tracing for the
// backoff calculator service.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("schedule generated",
//	    observability.String("strategy", "exponential"),
//	    observability.Int("retries", 5),
//	)
//
// # Metrics
//
// Prometheus metrics for the HTTP API and the calculator live on a private
// registry:
//
//	metrics := observability.NewMetrics("avabackoff")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry tracing with OTLP gRPC export. The exporter's own retries
// follow a backoff policy:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{
//	    ServiceName:  "avabackoff",
//	    OTLPEndpoint: "localhost:4317",
//	    SamplingRate: 1,
//	    Enabled:      true,
//	})
package observability
