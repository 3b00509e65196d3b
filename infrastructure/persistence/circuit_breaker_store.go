// Package persistence holds RecordStore decorators shared by every backend.
package persistence

import (
	"context"
	"iter"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"senkou-backend/application/ports"
	"senkou-backend/domain/core/entities"
	pkgerrors "senkou-backend/pkg/errors"
	"senkou-backend/pkg/observability"
)

// CircuitBreakerConfig holds configuration for the store circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreakerStore fails fast while the wrapped store keeps failing. It
// never retries; a rejected call surfaces as an internal error.
type CircuitBreakerStore struct {
	next    ports.RecordStore
	breaker *gobreaker.TwoStepCircuitBreaker
	logger  *zap.Logger
}

// NewCircuitBreakerStore wraps next. metrics may be nil.
func NewCircuitBreakerStore(next ports.RecordStore, config CircuitBreakerConfig, metrics *observability.Collector, logger *zap.Logger) *CircuitBreakerStore {
	breaker := gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics != nil {
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})

	return &CircuitBreakerStore{next: next, breaker: breaker, logger: logger}
}

var _ ports.RecordStore = (*CircuitBreakerStore)(nil)

// State reports the current breaker state
func (s *CircuitBreakerStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *CircuitBreakerStore) allow(operation string) (func(error), error) {
	done, err := s.breaker.Allow()
	if err != nil {
		s.logger.Warn("Circuit breaker rejected store call",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return nil, pkgerrors.NewInternalError("record store unavailable").
			WithCode("CIRCUIT_OPEN").
			WithCause(err)
	}
	return func(err error) { done(isHealthy(err)) }, nil
}

// isHealthy treats business outcomes as successful calls.
func isHealthy(err error) bool {
	return err == nil || pkgerrors.IsNotFound(err) || pkgerrors.IsValidation(err)
}

func (s *CircuitBreakerStore) Put(ctx context.Context, record entities.Record) error {
	done, err := s.allow("Put")
	if err != nil {
		return err
	}
	err = s.next.Put(ctx, record)
	done(err)
	return err
}

func (s *CircuitBreakerStore) Get(ctx context.Context, recordID string) (entities.Record, error) {
	done, err := s.allow("Get")
	if err != nil {
		return entities.Record{}, err
	}
	record, err := s.next.Get(ctx, recordID)
	done(err)
	return record, err
}

func (s *CircuitBreakerStore) Delete(ctx context.Context, recordID string) error {
	done, err := s.allow("Delete")
	if err != nil {
		return err
	}
	err = s.next.Delete(ctx, recordID)
	done(err)
	return err
}

func (s *CircuitBreakerStore) PartialUpdate(ctx context.Context, recordID string, instr ports.UpdateInstruction) (entities.Record, error) {
	done, err := s.allow("PartialUpdate")
	if err != nil {
		return entities.Record{}, err
	}
	record, err := s.next.PartialUpdate(ctx, recordID, instr)
	done(err)
	return record, err
}

// ScanAll counts one breaker call per full iteration.
func (s *CircuitBreakerStore) ScanAll(ctx context.Context, pred ports.Predicate) iter.Seq2[entities.Record, error] {
	return func(yield func(entities.Record, error) bool) {
		done, err := s.allow("ScanAll")
		if err != nil {
			yield(entities.Record{}, err)
			return
		}

		var scanErr error
		defer func() { done(scanErr) }()

		for record, err := range s.next.ScanAll(ctx, pred) {
			if err != nil {
				scanErr = err
			}
			if !yield(record, err) {
				return
			}
		}
	}
}
