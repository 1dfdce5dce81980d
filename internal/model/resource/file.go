package resource

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDirectory is the on-disk layout of a resource directory override.
type fileDirectory struct {
	Resources []Resource `yaml:"resources"`
}

// LoadFile reads a YAML resource directory that replaces Seed.
//
//	resources:
//	  - id: crisis-1
//	    title: 全国心理危机干预热线
//	    type: hotline
//	    phone: 400-161-9995
func LoadFile(path string) ([]Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}

	var dir fileDirectory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("parse resources: %w", err)
	}
	if err := validate(dir.Resources); err != nil {
		return nil, fmt.Errorf("resources %s: %w", path, err)
	}
	return dir.Resources, nil
}

func validate(items []Resource) error {
	if len(items) == 0 {
		return errors.New("no resources defined")
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ID == "" || item.Title == "" {
			return fmt.Errorf("entry %d: id and title are required", i)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("entry %d: duplicate id %q", i, item.ID)
		}
		seen[item.ID] = struct{}{}

		if !ValidType(item.Type) {
			return fmt.Errorf("entry %q: unknown type %q", item.ID, item.Type)
		}
		if item.Type == TypeHotline && item.Phone == "" {
			return fmt.Errorf("entry %q: hotline needs a phone number", item.ID)
		}
	}
	return nil
}
