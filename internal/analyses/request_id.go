package analyses

import (
	"context"

	"resume-insights/internal/shared/telemetry"
)

// WithRequestID attaches a request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return telemetry.WithRequestID(ctx, requestID)
}

// RequestIDFromContext returns the request ID carried by ctx.
func RequestIDFromContext(ctx context.Context) string {
	return telemetry.RequestIDFromContext(ctx)
}

// backgroundWithRequestID detaches from the request's cancellation but keeps its ID.
func backgroundWithRequestID(ctx context.Context) context.Context {
	return WithRequestID(context.Background(), RequestIDFromContext(ctx))
}
