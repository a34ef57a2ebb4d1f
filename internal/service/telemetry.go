package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/infra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// telemetry wraps operations with a span, a metric observation and a log line.
type telemetry struct {
	tracer  trace.Tracer
	metrics *infra.LadderMetrics
	logger  *slog.Logger
}

// observe runs fn under a span named after op. Errors that are not AppErrors
// are logged and replaced with ErrInternal so store details never reach callers.
func observe[T any](ctx context.Context, t *telemetry, op string, fn func(ctx context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := t.tracer.Start(ctx, "ladder."+op, trace.WithAttributes(
		append([]attribute.KeyValue{attribute.String("operation", op)}, attrs...)...,
	))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)

	if err == nil {
		t.metrics.Observe(op, "ok", elapsed)
		t.logger.DebugContext(ctx, op+" completed", "duration_ms", elapsed.Milliseconds())
		return out, nil
	}

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal(op+" failed", err)
	}
	span.RecordError(err)
	if appErr.Code == domain.CodeInternal {
		span.SetStatus(codes.Error, err.Error())
		t.logger.ErrorContext(ctx, op+" failed", "error", err, "duration_ms", elapsed.Milliseconds())
	} else {
		t.logger.InfoContext(ctx, op+" rejected", "code", appErr.Code, "reason", appErr.Message)
	}
	t.metrics.Observe(op, appErr.Code, elapsed)

	var zero T
	return zero, appErr
}
