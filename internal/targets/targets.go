// Package targets reads the bundle target manifest: named entrypoints a
// package exposes for bundling and serving.
package targets

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"modstream/internal/errors"
)

// DefaultFile is the manifest name looked up under the package root.
const DefaultFile = "modstream.toml"

// Manifest represents the targets declared in modstream.toml.
type Manifest struct {
	Targets []Target `toml:"target"`
}

// Target is one named entrypoint.
type Target struct {
	// Name identifies the target in URLs and on the command line
	Name string `toml:"name" json:"name" yaml:"name"`

	// Entrypoint is the module path, relative to the package root
	Entrypoint string `toml:"entrypoint" json:"entrypoint" yaml:"entrypoint"`

	// Description is an optional human-readable description
	Description string `toml:"description,omitempty" json:"description,omitempty" yaml:"description,omitempty"`
}

// Load reads a manifest. Unknown keys are rejected so typos do not silently
// drop a target. A missing file yields an empty manifest.
func Load(path string) (*Manifest, error) {
	var m Manifest
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Manifest{}, nil
		}
		return nil, errors.NewBundleError(errors.ConfigInvalid, "failed to parse "+path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf(errors.ConfigInvalid, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names are unique and entrypoints are relative module paths.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool)
	for i, t := range m.Targets {
		switch {
		case t.Name == "":
			return errors.Errorf(errors.ConfigInvalid, "target %d has no name", i)
		case strings.ContainsAny(t.Name, "/ \t"):
			return errors.Errorf(errors.ConfigInvalid, "target name %q must not contain slashes or spaces", t.Name)
		case seen[t.Name]:
			return errors.Errorf(errors.ConfigInvalid, "target %q is declared twice", t.Name)
		case t.Entrypoint == "":
			return errors.Errorf(errors.ConfigInvalid, "target %q has no entrypoint", t.Name)
		case filepath.IsAbs(t.Entrypoint):
			return errors.Errorf(errors.ConfigInvalid, "target %q entrypoint must be relative to the package root", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Get returns a target by name.
func (m *Manifest) Get(name string) (*Target, error) {
	for i := range m.Targets {
		if m.Targets[i].Name == name {
			return &m.Targets[i], nil
		}
	}
	return nil, errors.Errorf(errors.TargetNotFound, "no target named %q", name)
}

// Names returns the sorted target names.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Targets))
	for i, t := range m.Targets {
		names[i] = t.Name
	}
	sort.Strings(names)
	return names
}

// Add appends a target.
func (m *Manifest) Add(t Target) error {
	if _, err := m.Get(t.Name); err == nil {
		return fmt.Errorf("target %q already exists", t.Name)
	}
	m.Targets = append(m.Targets, t)
	if err := m.Validate(); err != nil {
		m.Targets = m.Targets[:len(m.Targets)-1]
		return err
	}
	return nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}
