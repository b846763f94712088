package ledger

import (
	"github.com/avendale/damagelog/internal/platform/attrpath"
	"github.com/avendale/damagelog/internal/registry"
)

// ComputeChanges diffs a partial update against a before snapshot, one
// candidate record per tracked attribute, in table declaration order.
// Attributes the update does not touch produce no record.
func ComputeChanges(cfg registry.SystemConfig, locale string, before, update map[string]any) []ChangeRecord {
	var changes []ChangeRecord

	for _, spec := range cfg.Attributes {
		oldValue := attrpath.NumberOr(before, spec.ValuePath, 0)

		newValue := oldValue
		if offset, ok := attrpath.Number(update, spec.OffsetPath); spec.OffsetPath != "" && ok {
			// Systems that write an offset instead of a direct value
			// derive the new value from the pre-update maximum.
			oldMax := attrpath.NumberOr(before, spec.MaxPath, 0)
			newValue = oldMax + offset
		} else if value, ok := attrpath.Number(update, spec.ValuePath); ok {
			newValue = value
		}

		if newValue == oldValue {
			continue
		}

		changes = append(changes, ChangeRecord{
			ID:   spec.Name,
			Name: registry.DisplayName(locale, cfg.ID, spec.Name),
			Old:  oldValue,
			New:  newValue,
			Diff: newValue - oldValue,
		})
	}

	return changes
}
