// Package source discovers packages and supplies them to the multiplexer.
package source

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file each package directory must contain.
const ManifestName = "hookmux.yaml"

// Manifest represents a hookmux.yaml file.
type Manifest struct {
	Name       string           `yaml:"name"                json:"name"`
	Version    string           `yaml:"version"             json:"version"`
	Author     string           `yaml:"author,omitempty"    json:"author,omitempty"`
	Summary    string           `yaml:"summary,omitempty"   json:"summary,omitempty"`
	Extensions []DescriptorSpec `yaml:"extensions,omitempty" json:"extensions,omitempty"`
}

// DescriptorSpec is one extension declaration in a manifest. The hook and
// name keys are fixed; every other key is collected into Fields untouched.
type DescriptorSpec struct {
	Hook   string         `json:"hook"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"-"`
}

// UnmarshalYAML decodes the fixed keys and gathers the rest into Fields.
func (d *DescriptorSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid extension entry: %w", err)
	}

	if hook, ok := raw["hook"].(string); ok {
		d.Hook = hook
	}
	if name, ok := raw["name"].(string); ok {
		d.Name = name
	}
	delete(raw, "hook")
	delete(raw, "name")
	if len(raw) > 0 {
		d.Fields = raw
	}
	return nil
}

// maxNameLength is the maximum allowed length for package names.
const maxNameLength = 64

// namePattern validates package names: must start with a lowercase letter,
// followed by lowercase letters, digits, or hyphens, and not end with a
// hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a hookmux.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	for i, ext := range m.Extensions {
		if ext.Hook == "" {
			return fmt.Errorf("extensions[%d]: hook is required", i)
		}
		if ext.Name == "" {
			return fmt.Errorf("extensions[%d]: name is required", i)
		}
	}

	return nil
}
