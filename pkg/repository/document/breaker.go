package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/pagination"
)

// BreakerSettings configures BreakerRepository.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerSettings returns conservative defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{FailureThreshold: 5, OpenTimeout: 30 * time.Second, HalfOpenRequests: 1}
}

// BreakerRepository guards a Repository with a circuit breaker. Not-found
// and conflict results are normal outcomes and do not count as failures.
// While the breaker is open, calls fail fast with ErrUnavailable.
type BreakerRepository[T Entity] struct {
	inner Repository[T]
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerRepository wraps inner with a breaker named name.
func NewBreakerRepository[T Entity](inner Repository[T], name string, settings BreakerSettings, log logger.Logger) *BreakerRepository[T] {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = DefaultBreakerSettings().FailureThreshold
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultBreakerSettings().OpenTimeout
	}
	threshold := settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidQuery) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerRepository[T]{inner: inner, cb: cb}
}

// State reports the breaker state, e.g. "closed" or "open".
func (r *BreakerRepository[T]) State() string { return r.cb.State().String() }

// HealthCheck fails while the breaker is open.
func (r *BreakerRepository[T]) HealthCheck(context.Context) error {
	if r.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit %s is open", ErrUnavailable, r.cb.Name())
	}
	return nil
}

func (r *BreakerRepository[T]) Count(ctx context.Context, filters pagination.Filters) (int64, error) {
	return execute(r.cb, func() (int64, error) { return r.inner.Count(ctx, filters) })
}

func (r *BreakerRepository[T]) Find(ctx context.Context, q pagination.Query) ([]T, error) {
	return execute(r.cb, func() ([]T, error) { return r.inner.Find(ctx, q) })
}

func (r *BreakerRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	return execute(r.cb, func() (T, error) { return r.inner.FindByID(ctx, id) })
}

func (r *BreakerRepository[T]) FindOne(ctx context.Context, filters pagination.Filters) (T, error) {
	return execute(r.cb, func() (T, error) { return r.inner.FindOne(ctx, filters) })
}

func (r *BreakerRepository[T]) Create(ctx context.Context, entity T) error {
	_, err := execute(r.cb, func() (struct{}, error) { return struct{}{}, r.inner.Create(ctx, entity) })
	return err
}

func (r *BreakerRepository[T]) Update(ctx context.Context, entity T) error {
	_, err := execute(r.cb, func() (struct{}, error) { return struct{}{}, r.inner.Update(ctx, entity) })
	return err
}

func (r *BreakerRepository[T]) Delete(ctx context.Context, id string) error {
	_, err := execute(r.cb, func() (struct{}, error) { return struct{}{}, r.inner.Delete(ctx, id) })
	return err
}

func execute[R any](cb *gobreaker.CircuitBreaker, fn func() (R, error)) (R, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero R
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		var zero R
		return zero, err
	}
	return out.(R), nil
}
