// Package telemetry provides observability instrumentation for sky-install.
//
// The package integrates structured logging (zerolog), tracing (OpenTelemetry)
// and metrics (Prometheus) behind one Telemetry value that the command layer
// builds at startup and attaches to the command context.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := telemetry.FromContext(ctx).NewComponentLogger("build")
//	logger.WithRunID(runID).WithStep("build-core").Info("building core")
//
// # Tracing
//
// Each command invocation is a span and each pipeline step a child span:
//
//	ctx, span := tel.Tracer.StartCommandSpan(ctx, runID, "install")
//	defer span.End()
//
// Exporters: stdout (pretty printed JSON), otlp (gRPC), none.
//
// # Metrics
//
// A single-shot CLI has no scrape window, so metrics are written in the
// Prometheus text exposition format to a file after each command
// (node_exporter textfile collector layout):
//
//	tel.Metrics.RecordStep("build-core", "succeeded", time.Second)
//	_ = tel.Metrics.WriteTextfile("/var/lib/node_exporter/sky-install.prom")
package telemetry
