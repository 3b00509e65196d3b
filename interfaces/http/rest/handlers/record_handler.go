package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"senkou-backend/application/ports"
	"senkou-backend/application/queries"
	"senkou-backend/application/services"
	"senkou-backend/domain/core/entities"
	"senkou-backend/domain/events"
	pkgerrors "senkou-backend/pkg/errors"
)

// maxBodyBytes caps request bodies; DynamoDB items cannot exceed 400 KB.
const maxBodyBytes = 1 << 20

// RecordService is what the handler needs from the application layer.
type RecordService interface {
	Create(ctx context.Context, payload map[string]any) (services.CreateResult, error)
	Get(ctx context.Context, recordID string) (entities.Record, error)
	List(ctx context.Context, ownerID string) ([]queries.RecordSummary, error)
	Update(ctx context.Context, recordID string, fields map[string]any) (entities.Record, error)
	Delete(ctx context.Context, recordID string) (services.DeleteResult, error)
}

// RecordHandler handles record-related HTTP requests
type RecordHandler struct {
	service   RecordService
	publisher ports.EventPublisher
	errors    *pkgerrors.ErrorHandler
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(
	service RecordService,
	publisher ports.EventPublisher,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *RecordHandler {
	return &RecordHandler{
		service:   service,
		publisher: publisher,
		errors:    errorHandler,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateRecord handles POST /senkous
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeObject(w, r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.service.Create(r.Context(), payload)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	owner, _ := payload[entities.AttrOwnerID].(string)
	h.publish(r.Context(), events.NewRecordCreated(result.RecordID, owner, h.now()))
	respondJSON(w, http.StatusCreated, result)
}

// GetRecord handles GET /senkous/{recordId}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "recordId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// ListRecords handles GET /senkous?ownerId=
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context(), r.URL.Query().Get(entities.AttrOwnerID))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// UpdateRecord handles PUT /senkous/{recordId}
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	record, err := h.service.Update(r.Context(), chi.URLParam(r, "recordId"), fields)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	written := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != nil {
			written = append(written, k)
		}
	}
	slices.Sort(written)
	h.publish(r.Context(), events.NewRecordUpdated(record.RecordID, record.OwnerID, written, h.now()))
	respondJSON(w, http.StatusOK, record)
}

// DeleteRecord handles DELETE /senkous/{recordId}
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordId")
	result, err := h.service.Delete(r.Context(), recordID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.publish(r.Context(), events.NewRecordDeleted(recordID, h.now()))
	respondJSON(w, http.StatusOK, result)
}

// publish never fails the request; the store write already happened.
func (h *RecordHandler) publish(ctx context.Context, event events.DomainEvent) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish record event",
			zap.String("eventType", event.GetEventType()),
			zap.String("recordId", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

// decodeObject reads a JSON object body. An empty body or a JSON null
// decodes to a nil map.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	var payload map[string]any
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.NewValidationError("Invalid request body").
			WithDetails(map[string]interface{}{"reason": err.Error()})
	}
	return payload, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
