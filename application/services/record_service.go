package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"senkou-backend/application/ports"
	"senkou-backend/application/queries"
	"senkou-backend/application/updates"
	"senkou-backend/domain/core/entities"
	"senkou-backend/domain/core/valueobjects"
	pkgerrors "senkou-backend/pkg/errors"
	"senkou-backend/pkg/observability"
	"senkou-backend/pkg/utils"
)

// Response messages shared with the HTTP layer.
const (
	MessageCreated = "Created"
	MessageDeleted = "Deleted successfully"
)

// CreateResult is returned by Create
type CreateResult struct {
	Message  string `json:"message"`
	RecordID string `json:"recordId"`
}

// DeleteResult is returned by Delete
type DeleteResult struct {
	Message string `json:"message"`
}

// RecordService is the entry point for record operations. Every method makes
// at most one store call and returns only ValidationError, NotFound or
// InternalError; unexpected failures and panics are converted at the
// boundary and logged.
type RecordService struct {
	store   ports.RecordStore
	ids     valueobjects.IDGenerator
	list    *queries.ListRecordsHandler
	metrics *observability.Collector
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewRecordService creates a new record service. metrics may be nil.
func NewRecordService(
	store ports.RecordStore,
	ids valueobjects.IDGenerator,
	metrics *observability.Collector,
	logger *zap.Logger,
) *RecordService {
	return &RecordService{
		store:   store,
		ids:     ids,
		list:    queries.NewListRecordsHandler(store),
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer("senkou-backend/services"),
	}
}

// Create normalizes payload into a new record and stores it.
func (s *RecordService) Create(ctx context.Context, payload map[string]any) (result CreateResult, err error) {
	ctx, span := s.tracer.Start(ctx, "RecordService.Create")
	defer func() { err = s.finish(span, "create", err, recover()) }()

	record, err := entities.Normalize(payload, s.ids)
	if err != nil {
		return CreateResult{}, err
	}
	span.SetAttributes(attribute.String("record.id", record.RecordID))

	if err := s.store.Put(ctx, record); err != nil {
		return CreateResult{}, err
	}

	s.logger.Info("Record created",
		zap.String("recordId", record.RecordID),
		zap.String("ownerId", record.OwnerID),
	)
	return CreateResult{Message: MessageCreated, RecordID: record.RecordID}, nil
}

// Get returns the full record.
func (s *RecordService) Get(ctx context.Context, recordID string) (record entities.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "RecordService.Get",
		trace.WithAttributes(attribute.String("record.id", recordID)))
	defer func() { err = s.finish(span, "get", err, recover()) }()

	if err := validateRecordID(recordID); err != nil {
		return entities.Record{}, err
	}
	return s.store.Get(ctx, recordID)
}

// List returns the summaries of every record owned by ownerID.
func (s *RecordService) List(ctx context.Context, ownerID string) (summaries []queries.RecordSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "RecordService.List",
		trace.WithAttributes(attribute.String("owner.id", ownerID)))
	defer func() { err = s.finish(span, "list", err, recover()) }()

	summaries, err = s.list.Handle(ctx, queries.ListRecordsQuery{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("record.count", len(summaries)))
	return summaries, nil
}

// Update writes fields onto an existing record and returns the result.
func (s *RecordService) Update(ctx context.Context, recordID string, fields map[string]any) (record entities.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "RecordService.Update",
		trace.WithAttributes(attribute.String("record.id", recordID)))
	defer func() { err = s.finish(span, "update", err, recover()) }()

	if err := validateRecordID(recordID); err != nil {
		return entities.Record{}, err
	}
	instr, err := updates.Build(fields)
	if err != nil {
		return entities.Record{}, err
	}

	record, err = s.store.PartialUpdate(ctx, recordID, instr)
	if err != nil {
		return entities.Record{}, err
	}

	s.logger.Info("Record updated",
		zap.String("recordId", recordID),
		zap.Strings("fields", instr.Fields()),
	)
	return record, nil
}

// Delete removes the record. Missing records are deleted successfully.
func (s *RecordService) Delete(ctx context.Context, recordID string) (result DeleteResult, err error) {
	ctx, span := s.tracer.Start(ctx, "RecordService.Delete",
		trace.WithAttributes(attribute.String("record.id", recordID)))
	defer func() { err = s.finish(span, "delete", err, recover()) }()

	if err := validateRecordID(recordID); err != nil {
		return DeleteResult{}, err
	}
	if err := s.store.Delete(ctx, recordID); err != nil {
		return DeleteResult{}, err
	}

	s.logger.Info("Record deleted", zap.String("recordId", recordID))
	return DeleteResult{Message: MessageDeleted}, nil
}

// finish converts err (or a recovered panic) to the service taxonomy, ends
// the span and counts the outcome.
func (s *RecordService) finish(span trace.Span, operation string, err error, recovered any) error {
	defer span.End()

	if recovered != nil {
		err = pkgerrors.NewInternalError(fmt.Sprintf("%s panicked", operation)).
			WithCause(fmt.Errorf("panic: %v", recovered))
	}
	if err != nil && pkgerrors.GetAppError(err) == nil {
		err = pkgerrors.NewInternalError(fmt.Sprintf("%s failed", operation)).WithCause(err)
	}

	outcome := "success"
	if err != nil {
		outcome = string(pkgerrors.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if pkgerrors.IsInternal(err) {
		s.logger.Error("Record operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordOutcome(operation, outcome)
	}
	return err
}

func validateRecordID(recordID string) error {
	if err := utils.ValidateVar(entities.AttrRecordID, recordID, "required"); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}
