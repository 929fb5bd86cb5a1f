package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"archigen/internal/llm"
	"archigen/internal/pipeline"
)

const instrumentation = "archigen/pipeline"

// PipelineMetrics records stage and run telemetry. It implements
// pipeline.Tracker.
type PipelineMetrics struct {
	tracer trace.Tracer

	stageDuration metric.Float64Histogram
	stageFailures metric.Int64Counter
	stagesActive  metric.Int64UpDownCounter
	runsCompleted metric.Int64Counter
	runDuration   metric.Float64Histogram
	llmCalls      metric.Int64Counter
}

// NewPipelineMetrics uses the global meter and tracer providers.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	return NewPipelineMetricsWith(otel.GetMeterProvider(), otel.GetTracerProvider())
}

func NewPipelineMetricsWith(mp metric.MeterProvider, tp trace.TracerProvider) (*PipelineMetrics, error) {
	meter := mp.Meter(instrumentation)

	stageDuration, err := meter.Float64Histogram(
		"archigen.stage.duration",
		metric.WithDescription("Duration of a pipeline stage in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageFailures, err := meter.Int64Counter(
		"archigen.stage.failures",
		metric.WithDescription("Total number of failed pipeline stages"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		return nil, err
	}

	stagesActive, err := meter.Int64UpDownCounter(
		"archigen.stages.active",
		metric.WithDescription("Number of stages currently in flight"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		return nil, err
	}

	runsCompleted, err := meter.Int64Counter(
		"archigen.runs.completed",
		metric.WithDescription("Total number of finished generation runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"archigen.run.duration",
		metric.WithDescription("Duration of a full generation run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	llmCalls, err := meter.Int64Counter(
		"archigen.llm.calls",
		metric.WithDescription("Total number of generative capability calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		tracer:        tp.Tracer(instrumentation),
		stageDuration: stageDuration,
		stageFailures: stageFailures,
		stagesActive:  stagesActive,
		runsCompleted: runsCompleted,
		runDuration:   runDuration,
		llmCalls:      llmCalls,
	}, nil
}

// StartStage opens a span for stage and returns the func that closes it.
func (m *PipelineMetrics) StartStage(ctx context.Context, stage string) (context.Context, func(error)) {
	ctx, span := m.tracer.Start(ctx, "pipeline."+stage)
	stageAttr := metric.WithAttributes(attribute.String("stage", stage))
	m.stagesActive.Add(ctx, 1, stageAttr)
	start := time.Now()

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "failed"
			code := string(pipeline.Classify(err))
			m.stageFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("stage", stage),
				attribute.String("error.type", code),
			))
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
		}
		m.stageDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		))
		m.stagesActive.Add(ctx, -1, stageAttr)
		span.End()
	}
}

// RunFinished records a completed run.
func (m *PipelineMetrics) RunFinished(ctx context.Context, outcome pipeline.Outcome, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	m.runsCompleted.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// Middleware counts capability calls by operation and result.
func (m *PipelineMetrics) Middleware() llm.Middleware {
	return llm.Intercept(func(ctx context.Context, c llm.Call, next func(context.Context) error) error {
		err := next(ctx)
		m.llmCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", string(c.Op)),
			attribute.Bool("error", err != nil),
		))
		return err
	})
}

var _ pipeline.Tracker = (*PipelineMetrics)(nil)
