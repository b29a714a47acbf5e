package service

import (
	"context"
	"ctchen222/accounts/internal/validator"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

type userMetrics struct {
	events metric.Int64Counter
}

func newUserMetrics() *userMetrics {
	meter := otel.Meter("api.service")
	events, err := meter.Int64Counter(
		"accounts.user.operations",
		metric.WithDescription("Login, sign-up and password change requests by outcome."),
	)
	if err != nil {
		slog.Warn("Failed to create user operations counter", "error", err)
		events = noop.Int64Counter{}
	}
	return &userMetrics{events: events}
}

func (m *userMetrics) record(ctx context.Context, op, outcome string) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// outcomeOf classifies err: nil is a success, validation failures are
// rejections and everything else is an error.
func outcomeOf(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	if _, ok := validator.AsValidationError(err); ok {
		return outcomeRejected
	}
	return outcomeError
}
