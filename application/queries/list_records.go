package queries

import (
	"context"

	"senkou-backend/application/ports"
	"senkou-backend/domain/core/entities"
	pkgerrors "senkou-backend/pkg/errors"
	"senkou-backend/pkg/utils"
)

// ErrNoRecords is the message for an owner with no records.
const ErrNoRecords = "No records found"

// ListRecordsQuery asks for every record owned by OwnerID
type ListRecordsQuery struct {
	OwnerID string `json:"ownerId" validate:"required"`
}

// RecordSummary is the list view of a record. Open attributes are never
// part of it.
type RecordSummary struct {
	RecordID          string  `json:"recordId"`
	CompanyName       *string `json:"companyName,omitempty"`
	Name              *string `json:"name,omitempty"`
	Status            int     `json:"status"`
	CurrentStageLabel string  `json:"currentStageLabel"`
}

// Summarize projects a record to its list view
func Summarize(r entities.Record) RecordSummary {
	return RecordSummary{
		RecordID:          r.RecordID,
		CompanyName:       r.CompanyName,
		Name:              r.Name,
		Status:            r.Status,
		CurrentStageLabel: r.CurrentStageLabel(),
	}
}

// ListRecordsHandler scans the store for an owner's records. The scan is a
// full-table scan with an ownerId filter.
type ListRecordsHandler struct {
	store ports.RecordStore
}

// NewListRecordsHandler creates a new handler instance
func NewListRecordsHandler(store ports.RecordStore) *ListRecordsHandler {
	return &ListRecordsHandler{store: store}
}

// Handle returns one summary per matching record, in store order. An owner
// with no records is reported as NotFound.
func (h *ListRecordsHandler) Handle(ctx context.Context, query ListRecordsQuery) ([]RecordSummary, error) {
	if err := utils.ValidateStruct(query); err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	pred := ports.AttributeEquals{Name: entities.AttrOwnerID, Value: query.OwnerID}

	summaries := []RecordSummary{}
	for record, err := range h.store.ScanAll(ctx, pred) {
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summarize(record))
	}

	if len(summaries) == 0 {
		return nil, pkgerrors.NewNotFoundMessage(ErrNoRecords).
			WithDetails(map[string]interface{}{"ownerId": query.OwnerID})
	}
	return summaries, nil
}
