package agent

import (
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/xiaot623/gogo/navigator/internal/telemetry"
)

var (
	metricsOnce   sync.Once
	runCounter    metric.Int64Counter
	errorCounter  metric.Int64Counter
	iterationHist metric.Int64Histogram
	runLatencyMs  metric.Float64Histogram
	llmLatencyMs  metric.Float64Histogram
	toolLatencyMs metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := telemetry.Meter()
		runCounter, _ = meter.Int64Counter("navigator.agent.run.count")
		errorCounter, _ = meter.Int64Counter("navigator.agent.error.count")
		iterationHist, _ = meter.Int64Histogram("navigator.agent.iterations")
		runLatencyMs, _ = meter.Float64Histogram("navigator.agent.run.latency_ms")
		llmLatencyMs, _ = meter.Float64Histogram("navigator.agent.llm.latency_ms")
		toolLatencyMs, _ = meter.Float64Histogram("navigator.agent.tool.latency_ms")
	})
}
