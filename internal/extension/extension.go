// Package extension defines the extension vocabulary and the hook resolver.
package extension

import "context"

// Descriptor declares an extension contributed by a package: the hook it
// implements, a display name, and any hook-specific fields.
type Descriptor struct {
	Hook   string         `json:"hook"   yaml:"hook"`
	Name   string         `json:"name"   yaml:"name"`
	Fields map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Metadata describes a package for display purposes. Author, Version and
// Summary may be empty.
type Metadata struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Author  string `json:"author,omitempty"`
	Version string `json:"version,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Package is a unit of distribution contributing extensions. Packages are
// created and destroyed by their source; the core never mutates one.
type Package interface {
	// ID returns the unique package identifier.
	ID() string

	// Metadata returns display metadata for the package.
	Metadata() Metadata

	// Extensions returns the descriptors this package contributes, in
	// declaration order.
	Extensions() []Descriptor

	// Load produces the value for one of this package's descriptors.
	Load(ctx context.Context, d Descriptor) (any, error)
}

// state discriminates the two Extension variants. It is assigned exactly
// once at construction, so a loader that legitimately returns nil still
// yields an unambiguously Loaded extension.
type state int

const (
	stateLoaded state = iota + 1
	stateErrored
)

// Extension is a resolved extension: either Loaded with a value or Errored
// with the load error. It carries the original descriptor and the owning
// package's identifier.
type Extension struct {
	Descriptor

	// PackageID identifies the package that contributed this extension.
	PackageID string

	state state
	value any
	err   error
}

// NewLoaded constructs the Loaded variant.
func NewLoaded(d Descriptor, packageID string, value any) Extension {
	return Extension{Descriptor: d, PackageID: packageID, state: stateLoaded, value: value}
}

// NewErrored constructs the Errored variant.
func NewErrored(d Descriptor, packageID string, err error) Extension {
	return Extension{Descriptor: d, PackageID: packageID, state: stateErrored, err: err}
}

// Value returns the loaded value. It is only meaningful for the Loaded
// variant; a nil value does not imply failure.
func (e Extension) Value() any { return e.value }

// Err returns the load error, or nil for the Loaded variant.
func (e Extension) Err() error { return e.err }

// IsLoaded reports whether ext is the Loaded variant.
func IsLoaded(ext Extension) bool { return ext.state == stateLoaded }

// IsErrored reports whether ext is the Errored variant.
func IsErrored(ext Extension) bool { return ext.state == stateErrored }
