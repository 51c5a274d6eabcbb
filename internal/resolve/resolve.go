// Package resolve maps import specifiers to canonical module identifiers.
//
// An identifier is the module's location re-expressed relative to a fixed
// package root, always slash separated and prefixed with "./", for example
// "./src/numbers.js". Resolution is pure path arithmetic; nothing here touches
// storage, so symlinked aliases of one file are distinct identifiers.
package resolve

import (
	"path"
	"path/filepath"
	"strings"

	"modstream/internal/errors"
)

// Identifier is the canonical, root-relative name of one module.
type Identifier string

// String returns the identifier text.
func (id Identifier) String() string {
	return string(id)
}

// Target is the outcome of resolving one specifier.
type Target struct {
	// Identifier is empty for external targets.
	Identifier Identifier
	// Location is the absolute, slash-separated location of the target.
	Location string
	// External marks bare specifiers and URLs that belong to the ambient
	// namespace of the execution environment.
	External bool
}

// Resolver resolves specifiers against a package root.
type Resolver struct {
	root string
}

// New creates a resolver for the given package root. The root must be
// absolute; OS separators are normalized to slashes.
func New(root string) (*Resolver, error) {
	slashed := filepath.ToSlash(root)
	if !path.IsAbs(slashed) && !filepath.IsAbs(root) {
		return nil, errors.Errorf(errors.ResolveError, "package root %q is not absolute", root)
	}
	slashed = path.Clean(slashed)
	return &Resolver{root: slashed}, nil
}

// Root returns the cleaned package root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve resolves specifier as written in the module at importer (an
// absolute location under the root).
func (r *Resolver) Resolve(specifier, importer string) (Target, error) {
	if specifier == "" {
		return Target{}, errors.Errorf(errors.ResolveError, "empty import specifier in %s", importer)
	}

	var abs string
	switch {
	case isRelative(specifier):
		abs = path.Join(path.Dir(filepath.ToSlash(importer)), specifier)
	case strings.HasPrefix(specifier, "/"):
		abs = path.Join(r.root, specifier)
	default:
		return Target{Location: specifier, External: true}, nil
	}

	id, err := r.Identify(abs)
	if err != nil {
		return Target{}, errors.NewBundleError(errors.ResolveError,
			"cannot resolve "+specifier+" from "+importer, err)
	}
	return Target{Identifier: id, Location: abs}, nil
}

// Identify converts an absolute location into its identifier. Locations
// outside the root are rejected.
func (r *Resolver) Identify(location string) (Identifier, error) {
	cleaned := path.Clean(filepath.ToSlash(location))
	if cleaned == r.root {
		return "", errors.Errorf(errors.ResolveError, "%s is the package root, not a module", location)
	}

	prefix := r.root
	if prefix != "/" {
		prefix += "/"
	}
	rel, ok := strings.CutPrefix(cleaned, prefix)
	if !ok {
		return "", errors.Errorf(errors.ResolveError, "%s is outside package root %s", location, r.root)
	}
	return Identifier("./" + rel), nil
}

// Locate converts an identifier back into an absolute location.
func (r *Resolver) Locate(id Identifier) string {
	rel := strings.TrimPrefix(string(id), "./")
	return path.Join(r.root, rel)
}

// Entrypoint resolves an entrypoint given either as an absolute path or as a
// path relative to the package root.
func (r *Resolver) Entrypoint(entry string) (Target, error) {
	slashed := filepath.ToSlash(entry)
	if !path.IsAbs(slashed) {
		slashed = path.Join(r.root, slashed)
	}
	id, err := r.Identify(slashed)
	if err != nil {
		return Target{}, err
	}
	return Target{Identifier: id, Location: path.Clean(slashed)}, nil
}

// isRelative reports whether specifier is a "./" or "../" relative reference.
func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
