package vfs

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"glob1env/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

// ParseSeed decodes a YAML list of entries.
func ParseSeed(b []byte) ([]model.Entry, error) {
	var entries []model.Entry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return entries, nil
}

// Seed builds the initial tree: a system directory, a welcome document, a
// credentials document and a script document, inserted at the root in order.
func Seed() (*Tree, error) {
	entries, err := ParseSeed(seedYAML)
	if err != nil {
		return nil, err
	}
	t := NewTree()
	for _, e := range entries {
		if err := t.Insert("/", e); err != nil {
			return nil, err
		}
	}
	return t, nil
}
