// Package observability provides OpenTelemetry tracing and metrics for ABI
// resolution, library probing and extension lookup.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("mpiabi"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanResolve)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("mpiabi"))
//	metrics.RecordResolve(ctx, "probe", "mpich", nil, elapsed)
//
// A nil *Metrics is valid and records nothing.
//
// Health:
//
//	report := observability.NewServiceHealth("mpiabi", version)
//	report.AddComponent(resolver.CheckHealth(ctx))
package observability
