package operations

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"logclassifier/pkg/contracts/domain"
)

const TracerName = "logclassifier.operations"

// startJobSpan opens the span covering one job execution
func startJobSpan(ctx context.Context, job *Job) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, "job.classify",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.upload_id", job.UploadID),
			attribute.Int("job.rows", job.Total),
		),
	)
}

// endJobSpan records the outcome and ends the span
func endJobSpan(span trace.Span, job *Job, err error) {
	span.SetAttributes(
		attribute.String("job.status", string(job.Status)),
		attribute.Int("job.done", job.Done),
	)
	if job.RunID != "" {
		span.SetAttributes(attribute.String("job.run_id", job.RunID))
	}
	if job.Status == domain.JobStatusFailed && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
