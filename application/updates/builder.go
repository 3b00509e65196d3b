// Package updates turns caller field updates into placeholder-bound
// partial-update instructions.
package updates

import (
	"fmt"
	"sort"

	"senkou-backend/application/ports"
	"senkou-backend/domain/core/entities"
	pkgerrors "senkou-backend/pkg/errors"
)

// ErrNoFields is the message for an update with nothing to write.
const ErrNoFields = "No update fields provided"

// Build validates fields and binds every pair to a #field{i} / :value{i}
// placeholder. Nil values are dropped before binding. Indices follow the
// ascending order of field names.
func Build(fields map[string]any) (ports.UpdateInstruction, error) {
	if len(fields) == 0 {
		return ports.UpdateInstruction{}, pkgerrors.NewValidationError(ErrNoFields)
	}

	present := make(map[string]any, len(fields))
	for k, v := range fields {
		if v != nil {
			present[k] = v
		}
	}
	if len(present) == 0 {
		return ports.UpdateInstruction{}, pkgerrors.NewValidationError(ErrNoFields)
	}
	if err := entities.ValidateUpdate(present); err != nil {
		return ports.UpdateInstruction{}, err
	}

	keys := make([]string, 0, len(present))
	for k := range present {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	instr := ports.UpdateInstruction{
		Assignments: make([]ports.Assignment, 0, len(keys)),
		Names:       make(map[string]string, len(keys)),
		Values:      make(map[string]any, len(keys)),
	}
	for i, key := range keys {
		name := fmt.Sprintf("#field%d", i)
		value := fmt.Sprintf(":value%d", i)

		instr.Assignments = append(instr.Assignments, ports.Assignment{NamePlaceholder: name, ValuePlaceholder: value})
		instr.Names[name] = key
		instr.Values[value] = present[key]
	}
	return instr, nil
}
