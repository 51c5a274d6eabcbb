// Package imports extracts static import declarations from JavaScript module
// text. Extraction is pluggable: a tree-sitter backed extractor is used when
// CGO is available and a pattern scanner serves as the pure-Go fallback.
package imports

import (
	"context"
	"fmt"
	"sort"

	"modstream/internal/errors"
)

// Reference is one static import found in a module.
type Reference struct {
	// Specifier is the import source as written, without quotes.
	Specifier string `json:"specifier"`
	// Start and End delimit the quoted literal in the module text as a
	// half-open byte range.
	Start int `json:"start"`
	End   int `json:"end"`
}

// Extractor returns the ordered, non-overlapping import references of a
// module's text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Reference, error)
}

// Kind selects an extractor implementation.
type Kind string

const (
	// KindAuto uses tree-sitter when available, the pattern scanner otherwise.
	KindAuto Kind = "auto"
	// KindTreeSitter parses modules with the tree-sitter JavaScript grammar.
	KindTreeSitter Kind = "treesitter"
	// KindPattern scans modules with regular expressions.
	KindPattern Kind = "pattern"
)

// ParseKind validates an extractor kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAuto, KindTreeSitter, KindPattern:
		return Kind(s), nil
	case "":
		return KindAuto, nil
	default:
		return "", fmt.Errorf("unknown parser %q (want auto, treesitter or pattern)", s)
	}
}

// New creates an extractor of the given kind. strict makes syntax errors
// anywhere in a module fatal rather than only inside import declarations.
func New(kind Kind, strict bool) (Extractor, error) {
	switch kind {
	case KindPattern:
		return NewPatternExtractor(), nil
	case KindTreeSitter:
		return NewTreeSitterExtractor(strict)
	case KindAuto, "":
		if IsTreeSitterAvailable() {
			return NewTreeSitterExtractor(strict)
		}
		return NewPatternExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown parser %q", kind)
	}
}

// sortAndCheck orders references by position and rejects overlaps.
func sortAndCheck(refs []Reference) ([]Reference, error) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Start < refs[j].Start })
	for i := 1; i < len(refs); i++ {
		if refs[i].Start < refs[i-1].End {
			return nil, errors.Errorf(errors.ParseError,
				"overlapping import ranges [%d,%d) and [%d,%d)",
				refs[i-1].Start, refs[i-1].End, refs[i].Start, refs[i].End)
		}
	}
	return refs, nil
}

// lineOf returns the 1-based line number of a byte offset.
func lineOf(text string, offset int) int {
	line := 1
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
		}
	}
	return line
}
