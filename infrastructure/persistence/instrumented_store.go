package persistence

import (
	"context"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"senkou-backend/application/ports"
	"senkou-backend/domain/core/entities"
	"senkou-backend/pkg/observability"
)

// InstrumentedStore records a span and store metrics around every call.
type InstrumentedStore struct {
	next    ports.RecordStore
	metrics *observability.Collector
	tracer  trace.Tracer
}

// NewInstrumentedStore wraps next
func NewInstrumentedStore(next ports.RecordStore, metrics *observability.Collector) *InstrumentedStore {
	return &InstrumentedStore{
		next:    next,
		metrics: metrics,
		tracer:  otel.Tracer("senkou-backend/persistence"),
	}
}

var _ ports.RecordStore = (*InstrumentedStore)(nil)

func (s *InstrumentedStore) start(ctx context.Context, operation, recordID string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "RecordStore."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "dynamodb")),
	)
	if recordID != "" {
		span.SetAttributes(attribute.String("record.id", recordID))
	}
	began := time.Now()

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveStore(operation, err, time.Since(began))
	}
}

func (s *InstrumentedStore) Put(ctx context.Context, record entities.Record) error {
	ctx, finish := s.start(ctx, "Put", record.RecordID)
	err := s.next.Put(ctx, record)
	finish(err)
	return err
}

func (s *InstrumentedStore) Get(ctx context.Context, recordID string) (entities.Record, error) {
	ctx, finish := s.start(ctx, "Get", recordID)
	record, err := s.next.Get(ctx, recordID)
	finish(err)
	return record, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, recordID string) error {
	ctx, finish := s.start(ctx, "Delete", recordID)
	err := s.next.Delete(ctx, recordID)
	finish(err)
	return err
}

func (s *InstrumentedStore) PartialUpdate(ctx context.Context, recordID string, instr ports.UpdateInstruction) (entities.Record, error) {
	ctx, finish := s.start(ctx, "PartialUpdate", recordID)
	record, err := s.next.PartialUpdate(ctx, recordID, instr)
	finish(err)
	return record, err
}

func (s *InstrumentedStore) ScanAll(ctx context.Context, pred ports.Predicate) iter.Seq2[entities.Record, error] {
	return func(yield func(entities.Record, error) bool) {
		ctx, finish := s.start(ctx, "ScanAll", "")
		var scanErr error
		defer func() { finish(scanErr) }()

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
