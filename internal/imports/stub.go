//go:build !cgo

package imports

import (
	"errors"
)

// ErrNoCGO is returned when the tree-sitter extractor is requested without CGO.
var ErrNoCGO = errors.New("tree-sitter import extraction requires CGO")

// NewTreeSitterExtractor returns ErrNoCGO when CGO is disabled.
func NewTreeSitterExtractor(strict bool) (Extractor, error) {
	return nil, ErrNoCGO
}

// IsTreeSitterAvailable returns false when CGO is disabled.
func IsTreeSitterAvailable() bool {
	return false
}
