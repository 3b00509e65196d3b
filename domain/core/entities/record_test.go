package entities

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senkou-backend/domain/core/valueobjects"
	pkgerrors "senkou-backend/pkg/errors"
)

func ptr(s string) *string { return &s }

func fixedIDs(id string) valueobjects.IDGenerator {
	return valueobjects.IDGeneratorFunc(func() string { return id })
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    Record
		wantErr bool
	}{
		{
			name:  "defaults status and flowStatus",
			input: map[string]any{"ownerId": "u1", "companyName": "Acme", "name": "Backend"},
			want: Record{
				RecordID: "r1", OwnerID: "u1", CompanyName: ptr("Acme"), Name: ptr("Backend"),
				Status: 1, FlowStatus: 0, Attributes: map[string]any{},
			},
		},
		{
			name:  "explicit values are preserved",
			input: map[string]any{"ownerId": "u1", "status": float64(3), "flowStatus": float64(2)},
			want: Record{
				RecordID: "r1", OwnerID: "u1", Status: 3, FlowStatus: 2, Attributes: map[string]any{},
			},
		},
		{
			name:  "zero is an explicit value",
			input: map[string]any{"ownerId": "u1", "status": 0},
			want: Record{
				RecordID: "r1", OwnerID: "u1", Status: 0, FlowStatus: 0, Attributes: map[string]any{},
			},
		},
		{
			name: "open fields are kept verbatim",
			input: map[string]any{
				"ownerId": "u1",
				"StageA":  map[string]any{"flowOrder": float64(0), "date": "2024-04-01"},
				"memo":    "call back",
			},
			want: Record{
				RecordID: "r1", OwnerID: "u1", Status: 1, FlowStatus: 0,
				Attributes: map[string]any{
					"StageA": map[string]any{"flowOrder": float64(0), "date": "2024-04-01"},
					"memo":   "call back",
				},
			},
		},
		{
			name: "flows entries are merged without overriding well-known fields",
			input: map[string]any{
				"ownerId": "u1",
				"flows": map[string]any{
					"Interview": map[string]any{"flowOrder": float64(1)},
					"status":    float64(9),
				},
			},
			want: Record{
				RecordID: "r1", OwnerID: "u1", Status: 1, FlowStatus: 0,
				Attributes: map[string]any{"Interview": map[string]any{"flowOrder": float64(1)}},
			},
		},
		{
			name:  "empty strings are kept as present",
			input: map[string]any{"ownerId": "u1", "companyName": "", "name": ""},
			want: Record{
				RecordID: "r1", OwnerID: "u1", CompanyName: ptr(""), Name: ptr(""),
				Status: 1, FlowStatus: 0, Attributes: map[string]any{},
			},
		},
		{
			name:  "large integral status within range",
			input: map[string]any{"ownerId": "u1", "status": float64(1 << 40)},
			want: Record{
				RecordID: "r1", OwnerID: "u1", Status: 1 << 40, FlowStatus: 0, Attributes: map[string]any{},
			},
		},
		{name: "missing ownerId", input: map[string]any{"companyName": "Acme"}, wantErr: true},
		{name: "empty ownerId", input: map[string]any{"ownerId": ""}, wantErr: true},
		{name: "non-string ownerId", input: map[string]any{"ownerId": 42}, wantErr: true},
		{name: "nil payload", input: nil, wantErr: true},
		{name: "fractional status", input: map[string]any{"ownerId": "u1", "status": 1.5}, wantErr: true},
		{name: "string flowStatus", input: map[string]any{"ownerId": "u1", "flowStatus": "1"}, wantErr: true},
		{name: "status beyond int64", input: map[string]any{"ownerId": "u1", "status": float64(1e20)}, wantErr: true},
		{name: "negative flowStatus beyond int64", input: map[string]any{"ownerId": "u1", "flowStatus": float64(-1e20)}, wantErr: true},
		{name: "status of two to the 63", input: map[string]any{"ownerId": "u1", "status": float64(1 << 63)}, wantErr: true},
		{name: "json number beyond int64", input: map[string]any{"ownerId": "u1", "status": json.Number("92233720368547758080")}, wantErr: true},
		{name: "infinite status", input: map[string]any{"ownerId": "u1", "status": math.Inf(1)}, wantErr: true},
		{name: "NaN flowStatus", input: map[string]any{"ownerId": "u1", "flowStatus": math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input, fixedIDs("r1"))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_UsesGenerator(t *testing.T) {
	r1, err := Normalize(map[string]any{"ownerId": "u1"}, valueobjects.NewUUIDGenerator())
	require.NoError(t, err)
	r2, err := Normalize(map[string]any{"ownerId": "u1"}, valueobjects.NewUUIDGenerator())
	require.NoError(t, err)

	assert.NotEmpty(t, r1.RecordID)
	assert.NotEqual(t, r1.RecordID, r2.RecordID)
}

func TestValidateUpdate(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]any
		wantErr string
	}{
		{name: "plain fields", fields: map[string]any{"companyName": "X", "memo": 1}},
		{name: "reserved word field", fields: map[string]any{"status": 2, "name": "n"}},
		{name: "recordId", fields: map[string]any{"recordId": "other"}, wantErr: "recordId cannot be updated"},
		{name: "ownerId", fields: map[string]any{"ownerId": "other"}, wantErr: "ownerId cannot be updated"},
		{name: "status type", fields: map[string]any{"status": "open"}, wantErr: "status must be an integer"},
		{name: "name type", fields: map[string]any{"name": 12}, wantErr: "name must be a string"},
		{name: "empty name", fields: map[string]any{"name": ""}},
		{name: "status beyond int64", fields: map[string]any{"status": float64(1e20)}, wantErr: "status must be an integer"},
		{name: "flowStatus beyond int64", fields: map[string]any{"flowStatus": float64(-1e19)}, wantErr: "flowStatus must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdate(tt.fields)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Equal(t, tt.wantErr, pkgerrors.GetAppError(err).Message)
		})
	}
}

func TestRecord_ItemRoundTrip(t *testing.T) {
	r := Record{
		RecordID:    "r1",
		OwnerID:     "u1",
		CompanyName: ptr("Acme"),
		Status:      2,
		FlowStatus:  1,
		Attributes:  map[string]any{"StageA": map[string]any{"flowOrder": float64(1)}},
	}

	item := r.Item()
	assert.NotContains(t, item, "name")
	assert.Equal(t, "Acme", item["companyName"])

	back, err := FromItem(item)
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestRecord_EmptyStringsSurviveRoundTrip(t *testing.T) {
	r := Record{RecordID: "r1", OwnerID: "u1", CompanyName: ptr(""), Name: ptr(""), Status: 1, Attributes: map[string]any{}}

	item := r.Item()
	assert.Equal(t, "", item["companyName"])
	assert.Equal(t, "", item["name"])

	back, err := FromItem(item)
	require.NoError(t, err)
	assert.Equal(t, r, back)

	data, err := json.Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recordId":"r1","ownerId":"u1","companyName":"","name":"","status":1,"flowStatus":0}`, string(data))
}

func TestAsInt_Range(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int
		wantOK bool
	}{
		{"int", 7, 7, true},
		{"integral float", float64(-3), -3, true},
		{"json number", json.Number("12"), 12, true},
		{"float beyond int64", float64(1e20), 0, false},
		{"float at two to the 63", float64(1 << 63), 0, false},
		{"float below int64", float64(-1e19), 0, false},
		{"json number beyond int64", json.Number("1e30"), 0, false},
		{"fractional", 2.5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInt(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromItem_Errors(t *testing.T) {
	_, err := FromItem(map[string]any{"ownerId": "u1"})
	assert.Error(t, err)

	_, err = FromItem(map[string]any{"recordId": "r1", "status": "x"})
	assert.Error(t, err)
}

func TestRecord_MarshalJSON(t *testing.T) {
	r := Record{RecordID: "r1", OwnerID: "u1", Name: ptr("Backend"), Status: 1, Attributes: map[string]any{"memo": "hi"}}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recordId":"r1","ownerId":"u1","name":"Backend","status":1,"flowStatus":0,"memo":"hi"}`, string(data))
}

func TestRecord_CurrentStageLabel(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name: "matching stage",
			record: Record{FlowStatus: 1, Attributes: map[string]any{
				"StageA": map[string]any{"flowOrder": float64(0)},
				"StageB": map[string]any{"flowOrder": float64(1)},
			}},
			want: "StageB",
		},
		{
			name: "no matching stage",
			record: Record{FlowStatus: 5, Attributes: map[string]any{
				"StageA": map[string]any{"flowOrder": float64(0)},
			}},
			want: UnknownStage,
		},
		{
			name:   "no open attributes",
			record: Record{FlowStatus: 0},
			want:   UnknownStage,
		},
		{
			name: "ties resolve to the first key in order",
			record: Record{FlowStatus: 2, Attributes: map[string]any{
				"Zeta":  map[string]any{"flowOrder": 2},
				"Alpha": map[string]any{"flowOrder": int64(2)},
			}},
			want: "Alpha",
		},
		{
			name: "string flowOrder does not match",
			record: Record{FlowStatus: 1, Attributes: map[string]any{
				"StageA": map[string]any{"flowOrder": "1"},
			}},
			want: UnknownStage,
		},
		{
			name: "scalar attributes are skipped",
			record: Record{FlowStatus: 0, Attributes: map[string]any{
				"memo":   "text",
				"StageA": map[string]any{"flowOrder": json.Number("0")},
			}},
			want: "StageA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.CurrentStageLabel())
		})
	}
}
