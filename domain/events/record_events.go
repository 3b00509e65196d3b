package events

import "time"

// Event types published for record lifecycle changes.
const (
	TypeRecordCreated = "senkou.created"
	TypeRecordUpdated = "senkou.updated"
	TypeRecordDeleted = "senkou.deleted"
)

// DomainEvent is something that has already happened to a record.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// RecordChanged carries the id of the affected record and, for creations
// and updates, the names of the fields that were written.
type RecordChanged struct {
	BaseEvent
	RecordID string   `json:"record_id"`
	OwnerID  string   `json:"owner_id,omitempty"`
	Fields   []string `json:"fields,omitempty"`
}

// NewRecordCreated creates a senkou.created event
func NewRecordCreated(recordID, ownerID string, at time.Time) RecordChanged {
	return RecordChanged{
		BaseEvent: BaseEvent{AggregateID: recordID, EventType: TypeRecordCreated, Timestamp: at},
		RecordID:  recordID,
		OwnerID:   ownerID,
	}
}

// NewRecordUpdated creates a senkou.updated event
func NewRecordUpdated(recordID, ownerID string, fields []string, at time.Time) RecordChanged {
	return RecordChanged{
		BaseEvent: BaseEvent{AggregateID: recordID, EventType: TypeRecordUpdated, Timestamp: at},
		RecordID:  recordID,
		OwnerID:   ownerID,
		Fields:    fields,
	}
}

// NewRecordDeleted creates a senkou.deleted event
func NewRecordDeleted(recordID string, at time.Time) RecordChanged {
	return RecordChanged{
		BaseEvent: BaseEvent{AggregateID: recordID, EventType: TypeRecordDeleted, Timestamp: at},
		RecordID:  recordID,
	}
}
