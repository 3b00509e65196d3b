package queries

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senkou-backend/domain/core/entities"
	"senkou-backend/infrastructure/persistence/memory"
	pkgerrors "senkou-backend/pkg/errors"
)

func ptr(s string) *string { return &s }

func seed(t *testing.T, store *memory.RecordStore, records ...entities.Record) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, store.Put(context.Background(), r))
	}
}

func TestListRecordsHandler_Handle(t *testing.T) {
	store := memory.NewRecordStore()
	seed(t, store,
		entities.Record{
			RecordID: "r1", OwnerID: "u1", CompanyName: ptr("Acme"), Name: ptr("Backend"), Status: 1, FlowStatus: 1,
			Attributes: map[string]any{
				"StageA": map[string]any{"flowOrder": 0},
				"StageB": map[string]any{"flowOrder": 1},
			},
		},
		entities.Record{
			RecordID: "r2", OwnerID: "u1", CompanyName: ptr("Globex"), Status: 2, FlowStatus: 7,
			Attributes: map[string]any{"StageA": map[string]any{"flowOrder": 0}},
		},
		entities.Record{RecordID: "r3", OwnerID: "u2", CompanyName: ptr("Initech"), Status: 1},
	)

	summaries, err := NewListRecordsHandler(store).Handle(context.Background(), ListRecordsQuery{OwnerID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, []RecordSummary{
		{RecordID: "r1", CompanyName: ptr("Acme"), Name: ptr("Backend"), Status: 1, CurrentStageLabel: "StageB"},
		{RecordID: "r2", CompanyName: ptr("Globex"), Status: 2, CurrentStageLabel: "Unknown"},
	}, summaries)
}

func TestListRecordsHandler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ownerID string
		setup   func(*memory.RecordStore)
		check   func(error) bool
	}{
		{
			name:    "missing owner",
			ownerID: "",
			check:   pkgerrors.IsValidation,
		},
		{
			name:    "no records for owner",
			ownerID: "nobody",
			setup: func(s *memory.RecordStore) {
				_ = s.Put(context.Background(), entities.Record{RecordID: "r1", OwnerID: "u1"})
			},
			check: pkgerrors.IsNotFound,
		},
		{
			name:    "scan failure propagates",
			ownerID: "u1",
			setup: func(s *memory.RecordStore) {
				s.SetError("ScanAll", errors.New("throttled"))
			},
			check: func(err error) bool { return err != nil && !pkgerrors.IsNotFound(err) && !pkgerrors.IsValidation(err) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewRecordStore()
			if tt.setup != nil {
				tt.setup(store)
			}

			summaries, err := NewListRecordsHandler(store).Handle(context.Background(), ListRecordsQuery{OwnerID: tt.ownerID})
			require.Error(t, err)
			assert.Nil(t, summaries)
			assert.True(t, tt.check(err))
		})
	}
}

func TestSummarize_HidesOpenAttributes(t *testing.T) {
	s := Summarize(entities.Record{RecordID: "r1", Attributes: map[string]any{"secret": "x"}})
	assert.Equal(t, RecordSummary{RecordID: "r1", CurrentStageLabel: "Unknown"}, s)
}

func TestListRecordsHandler_MissingOwnerMessage(t *testing.T) {
	_, err := NewListRecordsHandler(memory.NewRecordStore()).Handle(context.Background(), ListRecordsQuery{})

	require.Error(t, err)
	assert.Equal(t, "ownerId is required", pkgerrors.GetAppError(err).Message)
}
