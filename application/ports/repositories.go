package ports

import (
	"context"
	"iter"
	"strings"

	"senkou-backend/domain/core/entities"
	"senkou-backend/domain/events"
	pkgerrors "senkou-backend/pkg/errors"
)

// RecordStore is the persistence port for records. Every method is one
// round trip to the backing store.
type RecordStore interface {
	// Put writes the full record, replacing any existing one.
	Put(ctx context.Context, record entities.Record) error

	// Get returns the record or a NotFound error.
	Get(ctx context.Context, recordID string) (entities.Record, error)

	// Delete removes the record. Deleting a missing record succeeds.
	Delete(ctx context.Context, recordID string) error

	// PartialUpdate applies instr to an existing record and returns the
	// record as stored afterwards. A missing record is a NotFound error,
	// never an insert.
	PartialUpdate(ctx context.Context, recordID string, instr UpdateInstruction) (entities.Record, error)

	// ScanAll yields every stored record matching pred. The sequence reads
	// the table once and cannot be restarted.
	ScanAll(ctx context.Context, pred Predicate) iter.Seq2[entities.Record, error]
}

// Predicate selects records during a scan.
type Predicate interface {
	Matches(record entities.Record) bool
}

// AttributeEquals matches records whose top-level attribute Name equals
// Value. Stores push it down to their native filter language.
type AttributeEquals struct {
	Name  string
	Value string
}

// Matches compares against the flat item form, so well-known and open
// attributes are treated alike.
func (p AttributeEquals) Matches(record entities.Record) bool {
	v, ok := record.Item()[p.Name].(string)
	return ok && v == p.Value
}

// Assignment binds one name placeholder to one value placeholder.
type Assignment struct {
	NamePlaceholder  string
	ValuePlaceholder string
}

// UpdateInstruction is a placeholder-bound partial update. Field names and
// values only ever appear in Names and Values.
type UpdateInstruction struct {
	Assignments []Assignment
	Names       map[string]string
	Values      map[string]any
}

// Expression renders the SET clause, e.g. "SET #field0 = :value0".
func (u UpdateInstruction) Expression() string {
	parts := make([]string, len(u.Assignments))
	for i, a := range u.Assignments {
		parts[i] = a.NamePlaceholder + " = " + a.ValuePlaceholder
	}
	return "SET " + strings.Join(parts, ", ")
}

// Fields returns the literal field names the instruction writes, in
// assignment order.
func (u UpdateInstruction) Fields() []string {
	fields := make([]string, len(u.Assignments))
	for i, a := range u.Assignments {
		fields[i] = u.Names[a.NamePlaceholder]
	}
	return fields
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// NewRecordNotFound is the error every store returns for a missing record.
func NewRecordNotFound(recordID string) error {
	return pkgerrors.NewNotFoundError("senkou").
		WithDetails(map[string]interface{}{"recordId": recordID})
}

// NewUnreadableRecord reports a stored item that does not decode into a
// record. It is a store fault, never a caller error.
func NewUnreadableRecord(recordID string, cause error) error {
	return pkgerrors.NewInternalError("stored senkou is unreadable").
		WithCode("UNREADABLE_RECORD").
		WithDetails(map[string]interface{}{"recordId": recordID}).
		WithCause(cause)
}
