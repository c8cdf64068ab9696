package nonce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FailureCounterName is the OpenTelemetry instrument [NewMetricAuditor] records to.
const FailureCounterName = "unplugged.nonce.verify.failures"

// Failure describes a rejected token.  It carries no secret material.
type Failure struct {
	Token        string
	Action       string
	UserID       int64
	SessionToken string
	At           time.Time
}

// Auditor observes failed verifications.  Implementations must not block.
type Auditor interface {
	NonceFailed(ctx context.Context, f Failure)
}

// AuditorFunc adapts a function to [Auditor].
type AuditorFunc func(ctx context.Context, f Failure)

// NonceFailed implements [Auditor].
func (fn AuditorFunc) NonceFailed(ctx context.Context, f Failure) { fn(ctx, f) }

// LogAuditor writes each failure as a warning.
func LogAuditor(l *slog.Logger) Auditor {
	if l == nil {
		l = slog.Default()
	}
	return AuditorFunc(func(ctx context.Context, f Failure) {
		l.WarnContext(ctx, "nonce verification failed",
			"nonce", f.Token,
			"action", f.Action,
			"user_id", f.UserID,
			"session_token", f.SessionToken,
		)
	})
}

// NewMetricAuditor counts failures per action on meter.
func NewMetricAuditor(meter metric.Meter) (Auditor, error) {
	counter, err := meter.Int64Counter(FailureCounterName,
		metric.WithDescription("Nonce verifications that matched neither tick."),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("nonce: creating failure counter: %w", err)
	}
	return AuditorFunc(func(ctx context.Context, f Failure) {
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("action", f.Action)))
	}), nil
}

// MultiAuditor fans each failure out to every non-nil auditor in order.
func MultiAuditor(auditors ...Auditor) Auditor {
	return AuditorFunc(func(ctx context.Context, f Failure) {
		for _, a := range auditors {
			if a != nil {
				a.NonceFailed(ctx, f)
			}
		}
	})
}
