package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"senkou-backend/domain/core/valueobjects"
	pkgerrors "senkou-backend/pkg/errors"
	"senkou-backend/pkg/utils"
)

// Attribute names of the well-known part of a record. They double as the
// storage attribute names and the JSON keys.
const (
	AttrRecordID    = "recordId"
	AttrOwnerID     = "ownerId"
	AttrCompanyName = "companyName"
	AttrName        = "name"
	AttrStatus      = "status"
	AttrFlowStatus  = "flowStatus"

	// AttrFlowOrder is read from open attribute objects to locate the
	// record's current stage.
	AttrFlowOrder = "flowOrder"

	// FlowsKey names the creation payload object whose entries are merged
	// into the open attributes.
	FlowsKey = "flows"
)

const (
	DefaultStatus     = 1
	DefaultFlowStatus = 0

	// UnknownStage labels a record whose flowStatus matches no stage.
	UnknownStage = "Unknown"
)

var wellKnown = map[string]struct{}{
	AttrRecordID:    {},
	AttrOwnerID:     {},
	AttrCompanyName: {},
	AttrName:        {},
	AttrStatus:      {},
	AttrFlowStatus:  {},
}

// IsWellKnown reports whether key names one of the typed record attributes.
func IsWellKnown(key string) bool {
	_, ok := wellKnown[key]
	return ok
}

// Record is one tracked application. The typed fields hold the well-known
// attributes; Attributes holds every other caller-supplied field verbatim.
// A nil CompanyName or Name was never supplied; a pointer to "" was.
type Record struct {
	RecordID    string
	OwnerID     string
	CompanyName *string
	Name        *string
	Status      int
	FlowStatus  int
	Attributes  map[string]any
}

// Normalize builds a new record from a creation payload: it assigns a fresh
// id, requires ownerId, fills status and flowStatus defaults and keeps all
// other fields as open attributes.
func Normalize(input map[string]any, ids valueobjects.IDGenerator) (Record, error) {
	owner, err := stringAttr(input, AttrOwnerID)
	if err != nil {
		return Record{}, err
	}
	if err := utils.ValidateVar(AttrOwnerID, owner, "required"); err != nil {
		return Record{}, pkgerrors.NewValidationError(err.Error())
	}

	companyName, err := optionalStringAttr(input, AttrCompanyName)
	if err != nil {
		return Record{}, err
	}
	name, err := optionalStringAttr(input, AttrName)
	if err != nil {
		return Record{}, err
	}

	status, ok, err := intAttr(input, AttrStatus)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		status = DefaultStatus
	}
	flowStatus, ok, err := intAttr(input, AttrFlowStatus)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		flowStatus = DefaultFlowStatus
	}

	attrs := make(map[string]any)
	for k, v := range input {
		if IsWellKnown(k) || k == FlowsKey {
			continue
		}
		attrs[k] = v
	}
	if flows, present := input[FlowsKey]; present {
		if entries, isMap := flows.(map[string]any); isMap {
			for k, v := range entries {
				if !IsWellKnown(k) {
					attrs[k] = v
				}
			}
		} else {
			attrs[FlowsKey] = flows
		}
	}

	return Record{
		RecordID:    ids.NewID(),
		OwnerID:     owner,
		CompanyName: companyName,
		Name:        name,
		Status:      status,
		FlowStatus:  flowStatus,
		Attributes:  attrs,
	}, nil
}

// ValidateUpdate checks a field-update mapping against the record rules:
// identity and ownership are immutable and well-known attributes keep their
// types. Values are not otherwise inspected.
func ValidateUpdate(fields map[string]any) error {
	for _, key := range []string{AttrRecordID, AttrOwnerID} {
		if _, ok := fields[key]; ok {
			return pkgerrors.NewValidationError(fmt.Sprintf("%s cannot be updated", key)).
				WithDetails(map[string]interface{}{"field": key})
		}
	}
	for _, key := range []string{AttrCompanyName, AttrName} {
		if _, err := stringAttr(fields, key); err != nil {
			return err
		}
	}
	for _, key := range []string{AttrStatus, AttrFlowStatus} {
		if _, _, err := intAttr(fields, key); err != nil {
			return err
		}
	}
	return nil
}

// FromItem decodes the flat storage representation of a record.
func FromItem(item map[string]any) (Record, error) {
	id, ok := item[AttrRecordID].(string)
	if !ok || id == "" {
		return Record{}, fmt.Errorf("item has no %s", AttrRecordID)
	}

	var (
		r   = Record{RecordID: id, Attributes: make(map[string]any)}
		err error
	)
	if r.OwnerID, err = stringAttr(item, AttrOwnerID); err != nil {
		return Record{}, err
	}
	if r.CompanyName, err = optionalStringAttr(item, AttrCompanyName); err != nil {
		return Record{}, err
	}
	if r.Name, err = optionalStringAttr(item, AttrName); err != nil {
		return Record{}, err
	}
	if r.Status, _, err = intAttr(item, AttrStatus); err != nil {
		return Record{}, err
	}
	if r.FlowStatus, _, err = intAttr(item, AttrFlowStatus); err != nil {
		return Record{}, err
	}

	for k, v := range item {
		if !IsWellKnown(k) {
			r.Attributes[k] = v
		}
	}
	return r, nil
}

// Item returns the flat representation shared by storage and JSON.
func (r Record) Item() map[string]any {
	item := make(map[string]any, len(r.Attributes)+6)
	for k, v := range r.Attributes {
		item[k] = v
	}
	item[AttrRecordID] = r.RecordID
	item[AttrOwnerID] = r.OwnerID
	if r.CompanyName != nil {
		item[AttrCompanyName] = *r.CompanyName
	}
	if r.Name != nil {
		item[AttrName] = *r.Name
	}
	item[AttrStatus] = r.Status
	item[AttrFlowStatus] = r.FlowStatus
	return item
}

// MarshalJSON renders the record as one flat object.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Item())
}

// AttributeKeys returns the open attribute names in ascending order. This is
// the iteration order used for stage lookup.
func (r Record) AttributeKeys() []string {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CurrentStageLabel names the first open attribute, in AttributeKeys order,
// whose object value carries a flowOrder equal to FlowStatus. It returns
// UnknownStage when none does.
func (r Record) CurrentStageLabel() string {
	for _, key := range r.AttributeKeys() {
		stage, ok := r.Attributes[key].(map[string]any)
		if !ok {
			continue
		}
		if order, ok := AsInt(stage[AttrFlowOrder]); ok && order == r.FlowStatus {
			return key
		}
	}
	return UnknownStage
}

func stringAttr(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("%s must be a string", key))
	}
	return s, nil
}

func optionalStringAttr(m map[string]any, key string) (*string, error) {
	if v, ok := m[key]; !ok || v == nil {
		return nil, nil
	}
	s, err := stringAttr(m, key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func intAttr(m map[string]any, key string) (int, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	n, ok := AsInt(v)
	if !ok {
		return 0, false, pkgerrors.NewValidationError(fmt.Sprintf("%s must be an integer", key))
	}
	return n, true, nil
}

// AsInt converts the numeric forms produced by JSON and DynamoDB decoding to
// an int. Strings, non-integral numbers and values outside the int range are
// rejected.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int64ToInt(n)
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64ToInt(int64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int64ToInt(i)
	default:
		return 0, false
	}
}

func int64ToInt(i int64) (int, bool) {
	if i < math.MinInt || i > math.MaxInt {
		return 0, false
	}
	return int(i), true
}
