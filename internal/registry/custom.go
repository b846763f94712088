package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/avendale/damagelog/internal/platform/errors"
)

type customFile struct {
	Systems map[string]customSystem `yaml:"systems"`
}

type customSystem struct {
	Attributes []customAttribute `yaml:"attributes"`
}

type customAttribute struct {
	Name        string `yaml:"name"`
	Value       string `yaml:"value"`
	Min         string `yaml:"min"`
	Max         string `yaml:"max"`
	OverflowMax string `yaml:"overflow_max"`
	Offset      string `yaml:"offset"`
	Invert      bool   `yaml:"invert"`
}

// LoadCustomSystems parses a YAML file of user-defined system tables and
// registers each one, overriding builtins that share an identifier.
func LoadCustomSystems(r *Registry, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read systems file: %w", err)
	}

	var parsed customFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return errors.Wrap(errors.CodeSystemConfigInvalid, "parse systems file", err)
	}
	if len(parsed.Systems) == 0 {
		return errors.New(errors.CodeSystemConfigInvalid, "systems file defines no systems")
	}

	ids := make([]string, 0, len(parsed.Systems))
	for id := range parsed.Systems {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		system := parsed.Systems[id]
		attributes := make([]AttributeSpec, 0, len(system.Attributes))
		for _, attr := range system.Attributes {
			attributes = append(attributes, AttributeSpec{
				Name:            attr.Name,
				ValuePath:       attr.Value,
				MinPath:         attr.Min,
				MaxPath:         attr.Max,
				OverflowMaxPath: attr.OverflowMax,
				OffsetPath:      attr.Offset,
				Invert:          attr.Invert,
			})
		}
		cfg, err := NewSystemConfig(id, attributes)
		if err != nil {
			return err
		}
		if err := r.Register(cfg); err != nil {
			return err
		}
	}

	return nil
}
