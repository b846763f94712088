// Package registry holds per-game-system attribute tables: which dotted
// paths on an actor carry trackable resources, and how each resource is
// bounded and classified.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avendale/damagelog/internal/platform/errors"
	"github.com/avendale/damagelog/internal/platform/i18n/catalog"
)

// AttributeSpec describes one tracked resource within a game system.
type AttributeSpec struct {
	// Name identifies the resource within the system, e.g. "hp".
	Name string

	// ValuePath is the dotted path to the current value. Required.
	ValuePath string

	// MinPath and MaxPath bound the value when clamping is enabled. Either
	// may be empty, in which case that side is unbounded.
	MinPath string
	MaxPath string

	// OverflowMaxPath is added on top of MaxPath when both resolve, so
	// temporary maximum bonuses raise the clamp ceiling.
	OverflowMaxPath string

	// OffsetPath, when present in an update, re-derives the new value as
	// the old maximum plus the offset instead of reading ValuePath.
	OffsetPath string

	// Invert marks resources where an increase is harmful (wounds, stress).
	Invert bool
}

// SystemConfig is the full attribute table for one game system. Attribute
// order is the declaration order and drives change-record ordering.
type SystemConfig struct {
	ID         string
	Attributes []AttributeSpec

	byName map[string]int
}

// NewSystemConfig validates and builds a system table.
func NewSystemConfig(id string, attributes []AttributeSpec) (SystemConfig, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return SystemConfig{}, errors.New(errors.CodeSystemConfigInvalid, "system id is required")
	}
	if len(attributes) == 0 {
		return SystemConfig{}, errors.WithMetadata(errors.CodeSystemConfigInvalid,
			"system defines no attributes", map[string]string{"system_id": id})
	}

	byName := make(map[string]int, len(attributes))
	for i, attr := range attributes {
		name := strings.TrimSpace(attr.Name)
		if name == "" {
			return SystemConfig{}, errors.WithMetadata(errors.CodeSystemConfigInvalid,
				"attribute name is required", map[string]string{"system_id": id})
		}
		if _, dup := byName[name]; dup {
			return SystemConfig{}, errors.WithMetadata(errors.CodeSystemConfigInvalid,
				fmt.Sprintf("duplicate attribute %q", name), map[string]string{"system_id": id})
		}
		if strings.TrimSpace(attr.ValuePath) == "" {
			return SystemConfig{}, errors.WithMetadata(errors.CodeSystemConfigInvalid,
				fmt.Sprintf("attribute %q has no value path", name), map[string]string{"system_id": id})
		}
		byName[name] = i
	}

	return SystemConfig{ID: id, Attributes: attributes, byName: byName}, nil
}

// Attribute returns the spec for a named resource.
func (c SystemConfig) Attribute(name string) (AttributeSpec, bool) {
	idx, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return AttributeSpec{}, false
	}
	return c.Attributes[idx], true
}

// Registry maps game-system identifiers to their attribute tables.
type Registry struct {
	systems map[string]SystemConfig
}

// NewRegistry returns a registry preloaded with every builtin system.
func NewRegistry() *Registry {
	r := &Registry{systems: make(map[string]SystemConfig, len(builtinSystems))}
	for id, attributes := range builtinSystems {
		cfg, err := NewSystemConfig(id, attributes)
		if err != nil {
			// Builtin tables are fixed at compile time.
			panic(err)
		}
		r.systems[id] = cfg
	}
	return r
}

// Register adds or replaces a system table. Custom tables override builtins
// under the same identifier.
func (r *Registry) Register(cfg SystemConfig) error {
	if r == nil {
		return errors.New(errors.CodeUnknown, "registry is nil")
	}
	if cfg.ID == "" || len(cfg.Attributes) == 0 {
		return errors.New(errors.CodeSystemConfigInvalid, "system config is not validated")
	}
	r.systems[cfg.ID] = cfg
	return nil
}

// Lookup returns the table for a system identifier.
func (r *Registry) Lookup(systemID string) (SystemConfig, bool) {
	if r == nil {
		return SystemConfig{}, false
	}
	cfg, ok := r.systems[strings.TrimSpace(systemID)]
	return cfg, ok
}

// Require returns the table for a system identifier or a typed error naming
// the unsupported system.
func (r *Registry) Require(systemID string) (SystemConfig, error) {
	cfg, ok := r.Lookup(systemID)
	if !ok {
		return SystemConfig{}, errors.WithMetadata(errors.CodeSystemNotSupported,
			fmt.Sprintf("game system %q is not supported", strings.TrimSpace(systemID)),
			map[string]string{"system_id": strings.TrimSpace(systemID)})
	}
	return cfg, nil
}

// Systems returns all registered system identifiers in sorted order.
func (r *Registry) Systems() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.systems))
	for id := range r.systems {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DisplayName resolves the localized display name for an attribute, trying
// the system-specific key first, then the shared default, then the raw name.
func DisplayName(locale string, systemID string, attributeName string) string {
	bundle := catalog.Default()
	if value, ok := bundle.Message(locale, "resources."+systemID+"."+attributeName+"-name"); ok {
		return value
	}
	if value, ok := bundle.Message(locale, "resources.default."+attributeName+"-name"); ok {
		return value
	}
	return attributeName
}
