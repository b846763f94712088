package ledger

import (
	"math"
	"time"

	"github.com/avendale/damagelog/internal/platform/i18n/catalog"
	"github.com/avendale/damagelog/internal/registry"
)

// ChangeRecord is one resource delta within an entry.
type ChangeRecord struct {
	// ID is the attribute identifier within the system, e.g. "hp".
	ID string
	// Name is the localized display name resolved at creation time.
	Name string
	Old  float64
	New  float64
	// Diff is New - Old.
	Diff float64
}

// Entry is the persisted record of one mutation event.
type Entry struct {
	ID         string
	SystemID   string
	AuthorID   string
	AuthorName string
	Speaker    Speaker
	Changes    []ChangeRecord
	Reverted   bool

	// Public is the operator override of the default visibility rule:
	// nil means "use the default", true forces public, false forces the
	// restricted distribution.
	Public *bool

	// Recipients is the distribution list computed at creation. A nil
	// slice means unrestricted delivery.
	Recipients []string

	CreatedAt time.Time
}

// Classification aggregates an entry's changes into a single verdict.
type Classification struct {
	// TotalDiff is the invert-adjusted signed total across all changes.
	TotalDiff float64
	// IsHealing is true only when TotalDiff is strictly positive; a zero
	// total classifies as damage.
	IsHealing bool
}

// Kind returns the state class for the classification.
func (c Classification) Kind() string {
	if c.IsHealing {
		return "healing"
	}
	return "damage"
}

// Classify computes the invert-adjusted total for a change list. Changes
// whose attribute no longer exists in the system table contribute as
// non-inverted.
func Classify(cfg registry.SystemConfig, changes []ChangeRecord) Classification {
	var total float64
	for _, change := range changes {
		diff := change.Diff
		if spec, ok := cfg.Attribute(change.ID); ok && spec.Invert {
			diff = -diff
		}
		total += diff
	}
	return Classification{TotalDiff: total, IsHealing: total > 0}
}

// Classify returns the entry's classification under the given system table.
func (e *Entry) Classify(cfg registry.SystemConfig) Classification {
	if e == nil {
		return Classification{}
	}
	return Classify(cfg, e.Changes)
}

// FlavorText renders the localized one-line summary for a classification.
func FlavorText(locale string, c Classification) string {
	printer := catalog.Printer(locale)
	total := math.Abs(c.TotalDiff)
	if c.IsHealing {
		return printer.Sprintf("core.flavor.healing", total)
	}
	return printer.Sprintf("core.flavor.damage", total)
}
