//go:build cgo

package imports

import (
	"context"
	"strconv"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"modstream/internal/errors"
)

// TreeSitterExtractor parses modules with the tree-sitter JavaScript grammar
// and reports the source literal of every top-level import and re-export.
type TreeSitterExtractor struct {
	mu     sync.Mutex
	parser *sitter.Parser
	strict bool
}

// NewTreeSitterExtractor creates a tree-sitter backed extractor.
func NewTreeSitterExtractor(strict bool) (Extractor, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &TreeSitterExtractor{parser: parser, strict: strict}, nil
}

// IsTreeSitterAvailable returns whether the tree-sitter extractor can be used.
func IsTreeSitterAvailable() bool {
	return true
}

// Extract implements Extractor.
func (e *TreeSitterExtractor) Extract(ctx context.Context, text string) ([]Reference, error) {
	source := []byte(text)

	// sitter.Parser is not safe for concurrent use.
	e.mu.Lock()
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	e.mu.Unlock()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.NewBundleError(errors.ParseError, "tree-sitter parse failed", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if e.strict && root.HasError() {
		return nil, syntaxError(root)
	}

	var refs []Reference
	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		stmt := root.NamedChild(i)
		switch stmt.Type() {
		case "import_statement", "export_statement":
		default:
			continue
		}

		if stmt.HasError() {
			return nil, syntaxError(stmt)
		}

		src := stmt.ChildByFieldName("source")
		if src == nil {
			// export declarations without a from clause
			continue
		}
		if src.Type() != "string" {
			return nil, errors.Errorf(errors.ParseError,
				"import source at line %d is not a string literal", src.StartPoint().Row+1)
		}

		refs = append(refs, Reference{
			Specifier: stringValue(src, source),
			Start:     int(src.StartByte()),
			End:       int(src.EndByte()),
		})
	}

	return sortAndCheck(refs)
}

// stringValue decodes a string node's fragments and escape sequences.
func stringValue(n *sitter.Node, source []byte) string {
	var b strings.Builder
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		part := n.NamedChild(i)
		content := part.Content(source)
		switch part.Type() {
		case "escape_sequence":
			if unquoted, err := strconv.Unquote(`"` + content + `"`); err == nil {
				b.WriteString(unquoted)
			} else {
				b.WriteString(strings.TrimPrefix(content, `\`))
			}
		default:
			b.WriteString(content)
		}
	}
	return b.String()
}

// syntaxError reports the first ERROR or MISSING node below n.
func syntaxError(n *sitter.Node) error {
	bad := firstError(n)
	if bad == nil {
		bad = n
	}
	pos := bad.StartPoint()
	return errors.Errorf(errors.ParseError, "syntax error at line %d, column %d", pos.Row+1, pos.Column+1)
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstError(child); found != nil {
			return found
		}
	}
	return nil
}
