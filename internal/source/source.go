// Package source loads module text by absolute location.
package source

import (
	"context"
	"strings"
)

// Store retrieves the raw text of a module. Implementations return a
// LOAD_ERROR BundleError when the module cannot be retrieved.
type Store interface {
	Load(ctx context.Context, location string) (string, error)
}

// moduleExtensions lists the file extensions treated as modules when a
// directory tree is snapshotted.
var moduleExtensions = []string{".js", ".mjs"}

// IsModuleFile reports whether name looks like a JavaScript module.
func IsModuleFile(name string) bool {
	for _, ext := range moduleExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
