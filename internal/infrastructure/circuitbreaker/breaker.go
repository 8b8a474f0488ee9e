// Package circuitbreaker wraps Sony's GoBreaker for the single upstream this
// service talks to: the weather API. When the upstream keeps failing, the
// breaker opens and calls fail fast instead of piling timeouts onto every
// request.
package circuitbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Breaker wraps a gobreaker.CircuitBreaker with tracing and structured
// logging around each guarded call.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	name    string
}

// Config defines when the breaker opens and how long it stays open.
type Config struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// New creates a circuit breaker with the specified configuration.
//
// Parameters:
//   - cfg: Circuit breaker thresholds; ReadyToTrip defaults to a 50%
//     failure ratio over at least 3 requests
//   - logger: Zap logger for state changes and failed executions
//
// Returns:
//   - *Breaker: Configured circuit breaker instance
func New(cfg Config, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: cfg.ReadyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= 0.5
		}
	}

	return &Breaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		name:    cfg.Name,
	}
}

// Execute runs a function within the circuit breaker.
//
// Parameters:
//   - ctx: Context for tracing
//   - operation: Name of the operation for logging
//   - fn: Function to execute with circuit breaker protection
//
// Returns:
//   - error: Function error or gobreaker.ErrOpenState/ErrTooManyRequests
func (b *Breaker) Execute(ctx context.Context, operation string, fn func() error) error {
	tracer := otel.Tracer("circuit-breaker")
	_, span := tracer.Start(ctx, "Breaker.Execute")

	defer span.End()

	span.SetAttributes(
		attribute.String("circuit_breaker.name", b.name),
		attribute.String("circuit_breaker.operation", operation),
		attribute.String("circuit_breaker.state", b.breaker.State().String()),
	)

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err != nil {
		span.RecordError(err)

		b.logger.Warn("circuit breaker execution failed",
			zap.String("name", b.name),
			zap.String("operation", operation),
			zap.String("state", b.breaker.State().String()),
			zap.Error(err))
	}

	span.SetAttributes(attribute.Bool("circuit_breaker.success", err == nil))

	return err
}

// State returns the current circuit breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the current request and failure statistics.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}
