// Package telemetry exposes process-wide metrics (active calls, timer
// fires, call duration) via an OpenTelemetry meter backed by a Prometheus
// exporter.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the process-wide instruments; cmd/bridge records against
// them.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	ActiveCalls    metric.Int64UpDownCounter
	TimerFires     metric.Int64Counter
	CallDurationMs metric.Float64Histogram
	CleanupReasons metric.Int64Counter
}

// NewMetrics builds a meter provider with a Prometheus exporter (served by
// cmd/bridge's own promhttp metrics listener) and registers this module's
// instruments on it.
func NewMetrics() (*Metrics, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("ari-voicebridge")

	activeCalls, err := meter.Int64UpDownCounter("voicebridge_active_calls",
		metric.WithDescription("calls currently in a non-terminal lifecycle state"))
	if err != nil {
		return nil, err
	}

	timerFires, err := meter.Int64Counter("voicebridge_timer_fires_total",
		metric.WithDescription("timer registry fires, by timer name"))
	if err != nil {
		return nil, err
	}

	callDuration, err := meter.Float64Histogram("voicebridge_call_duration_ms",
		metric.WithDescription("wall-clock duration from Answered to Closed"))
	if err != nil {
		return nil, err
	}

	cleanupReasons, err := meter.Int64Counter("voicebridge_cleanup_reasons_total",
		metric.WithDescription("fullCleanup invocations, by reason code"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		provider:       provider,
		ActiveCalls:    activeCalls,
		TimerFires:     timerFires,
		CallDurationMs: callDuration,
		CleanupReasons: cleanupReasons,
	}, nil
}

// Shutdown flushes and stops the underlying meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
