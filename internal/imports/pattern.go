package imports

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"modstream/internal/errors"
)

// literal matches a single- or double-quoted specifier on one line,
// including backslash escapes.
const literal = `("(?:[^"\\\n]|\\.)*"|'(?:[^'\\\n]|\\.)*')`

// bom is the UTF-8 byte order mark some editors put at the start of a file.
const bom = "\uFEFF"

var (
	// import "x"; import a from "x"; import {a as b, c} from 'x'; import * as ns from "x"
	importPattern = regexp.MustCompile(`(?m)(?:^|[;}])[ \t]*(import)\b\s*(?:[\w$*{}\s,]+?\s*from\s*)?` + literal)
	// export * from "x"; export * as ns from "x"; export {a, b as c} from "x"
	exportPattern = regexp.MustCompile(`(?m)(?:^|[;}])[ \t]*export\s*(?:\*\s*(?:as\s+[\w$]+\s*)?|\{[^}]*\}\s*)from\s*` + literal)
	importToken   = regexp.MustCompile(`\bimport\b`)
)

// PatternExtractor finds import declarations at the start of a line or after
// a statement terminator. It does not understand block comments or imports
// inside template strings; use the tree-sitter extractor for full fidelity.
// Any import keyword it cannot account for is a PARSE_ERROR, never a silently
// dropped dependency.
type PatternExtractor struct{}

// NewPatternExtractor creates a pattern-based extractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract implements Extractor.
func (e *PatternExtractor) Extract(ctx context.Context, text string) ([]Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Offsets stay relative to text, BOM included.
	base := 0
	if strings.HasPrefix(text, bom) {
		base = len(bom)
	}
	body := text[base:]

	var refs []Reference
	matched := make(map[int]bool)

	for _, m := range importPattern.FindAllStringSubmatchIndex(body, -1) {
		matched[m[2]] = true
		ref, err := literalRef(body, m[4], m[5])
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	for _, m := range exportPattern.FindAllStringSubmatchIndex(body, -1) {
		ref, err := literalRef(body, m[2], m[3])
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	// Every import keyword that can start a static declaration must have
	// produced a reference.
	for _, s := range importToken.FindAllStringIndex(body, -1) {
		if matched[s[0]] || !staticImportAt(body, s[0], s[1]) {
			continue
		}
		return nil, errors.Errorf(errors.ParseError,
			"malformed import declaration at line %d", lineOf(body, s[0]))
	}

	for i := range refs {
		refs[i].Start += base
		refs[i].End += base
	}
	return sortAndCheck(refs)
}

// staticImportAt reports whether the import keyword at [start, end) can begin
// a static import declaration. import() and import.meta, property accesses
// such as obj.import and keywords inside strings or line comments are skipped.
func staticImportAt(text string, start, end int) bool {
	if start > 0 {
		if prev := text[start-1]; prev == '.' || prev == '$' {
			return false
		}
	}
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	if quotedOrCommented(text[lineStart:start]) {
		return false
	}
	rest := strings.TrimLeft(text[end:], " \t\r\n")
	return rest != "" && rest[0] != '(' && rest[0] != '.'
}

// quotedOrCommented reports whether the end of a line prefix lies inside a
// string literal or a line comment.
func quotedOrCommented(prefix string) bool {
	var quote byte
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && i+1 < len(prefix) && prefix[i+1] == '/':
			return true
		}
	}
	return quote != 0
}

func literalRef(text string, start, end int) (Reference, error) {
	spec, err := unquoteLiteral(text[start:end])
	if err != nil {
		return Reference{}, errors.NewBundleError(errors.ParseError,
			"invalid string literal at line "+strconv.Itoa(lineOf(text, start)), err)
	}
	return Reference{
		Specifier: spec,
		Start:     start,
		End:       end,
	}, nil
}

// unquoteLiteral decodes a quoted JavaScript string literal.
func unquoteLiteral(lit string) (string, error) {
	body := lit[1 : len(lit)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}

	// Re-express as a double-quoted Go literal. Escapes JavaScript treats as
	// the character itself become that character.
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '"' {
			b.WriteString(`\"`)
			continue
		}
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; {
		case strings.IndexByte(`bfnrtv"\xu`, e) >= 0:
			b.WriteByte('\\')
			b.WriteByte(e)
		case e == '0' && (i+1 == len(body) || body[i+1] < '0' || body[i+1] > '9'):
			b.WriteString(`\x00`)
		case e >= '0' && e <= '9':
			return "", fmt.Errorf("octal escape \\%c", e)
		case e == '\'':
			b.WriteByte('\'')
		default:
			b.WriteByte(e)
		}
	}
	return strconv.Unquote(`"` + b.String() + `"`)
}
