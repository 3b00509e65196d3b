package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"senkou-backend/application/ports"
	"senkou-backend/domain/core/entities"
)

// RecordStore keeps records as flat items in process memory. It backs local
// development and tests and mirrors the DynamoDB adapter's semantics.
type RecordStore struct {
	mu     sync.RWMutex
	items  map[string]map[string]any
	errors map[string]error
}

// NewRecordStore creates an empty in-memory record store
func NewRecordStore() *RecordStore {
	return &RecordStore{
		items:  make(map[string]map[string]any),
		errors: make(map[string]error),
	}
}

var _ ports.RecordStore = (*RecordStore)(nil)

// SetError makes every later call of the named method ("Put", "Get",
// "Delete", "PartialUpdate", "ScanAll") fail with err. A nil err clears it.
func (s *RecordStore) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errors, method)
		return
	}
	s.errors[method] = err
}

func (s *RecordStore) injected(method string) error {
	return s.errors[method]
}

// Put stores a copy of the record
func (s *RecordStore) Put(ctx context.Context, record entities.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Put"); err != nil {
		return err
	}

	s.items[record.RecordID] = cloneItem(record.Item())
	return nil
}

// Get returns a copy of the stored record
func (s *RecordStore) Get(ctx context.Context, recordID string) (entities.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected("Get"); err != nil {
		return entities.Record{}, err
	}

	item, ok := s.items[recordID]
	if !ok {
		return entities.Record{}, ports.NewRecordNotFound(recordID)
	}
	record, err := entities.FromItem(cloneItem(item))
	if err != nil {
		return entities.Record{}, ports.NewUnreadableRecord(recordID, err)
	}
	return record, nil
}

// Delete removes the record if present
func (s *RecordStore) Delete(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Delete"); err != nil {
		return err
	}

	delete(s.items, recordID)
	return nil
}

// PartialUpdate applies the instruction's assignments to the stored item.
func (s *RecordStore) PartialUpdate(ctx context.Context, recordID string, instr ports.UpdateInstruction) (entities.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("PartialUpdate"); err != nil {
		return entities.Record{}, err
	}

	item, ok := s.items[recordID]
	if !ok {
		return entities.Record{}, ports.NewRecordNotFound(recordID)
	}

	updated := cloneItem(item)
	for _, a := range instr.Assignments {
		name, ok := instr.Names[a.NamePlaceholder]
		if !ok {
			return entities.Record{}, fmt.Errorf("unbound name placeholder %s", a.NamePlaceholder)
		}
		value, ok := instr.Values[a.ValuePlaceholder]
		if !ok {
			return entities.Record{}, fmt.Errorf("unbound value placeholder %s", a.ValuePlaceholder)
		}
		updated[name] = cloneValue(value)
	}

	record, err := entities.FromItem(cloneItem(updated))
	if err != nil {
		return entities.Record{}, ports.NewUnreadableRecord(recordID, err)
	}
	s.items[recordID] = updated
	return record, nil
}

// ScanAll yields matching records in ascending id order from a snapshot
// taken on the first iteration.
func (s *RecordStore) ScanAll(ctx context.Context, pred ports.Predicate) iter.Seq2[entities.Record, error] {
	return func(yield func(entities.Record, error) bool) {
		s.mu.RLock()
		if err := s.injected("ScanAll"); err != nil {
			s.mu.RUnlock()
			yield(entities.Record{}, err)
			return
		}
		ids := make([]string, 0, len(s.items))
		snapshot := make(map[string]map[string]any, len(s.items))
		for id, item := range s.items {
			ids = append(ids, id)
			snapshot[id] = cloneItem(item)
		}
		s.mu.RUnlock()
		sort.Strings(ids)

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(entities.Record{}, err)
				return
			}
			record, err := entities.FromItem(snapshot[id])
			if err != nil {
				continue
			}
			if pred != nil && !pred.Matches(record) {
				continue
			}
			if !yield(record, nil) {
				return
			}
		}
	}
}

// Len reports the number of stored records
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func cloneItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneItem(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
