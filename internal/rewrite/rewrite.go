// Package rewrite replaces import specifiers with private-scheme URIs.
package rewrite

import (
	"bytes"
	"encoding/json"
	"strings"

	"modstream/internal/errors"
	"modstream/internal/imports"
	"modstream/internal/resolve"
)

// DefaultScheme is the private URI scheme used for package-internal modules.
const DefaultScheme = "bundle"

// URI returns the private-scheme URI for an identifier,
// e.g. bundle://./src/numbers.js.
func URI(scheme string, id resolve.Identifier) string {
	return scheme + "://" + string(id)
}

// ParseURI returns the identifier named by a private-scheme URI and whether
// s uses the scheme at all.
func ParseURI(scheme, s string) (resolve.Identifier, bool) {
	rest, ok := strings.CutPrefix(s, scheme+"://")
	if !ok || rest == "" {
		return "", false
	}
	return resolve.Identifier(rest), true
}

// Rewrite returns text with every reference's byte range replaced by a quoted
// private-scheme URI of the matching identifier. ids[i] belongs to refs[i];
// an empty identifier leaves that reference untouched. References must be
// ordered and non-overlapping.
func Rewrite(text string, refs []imports.Reference, ids []resolve.Identifier, scheme string) (string, error) {
	if len(refs) != len(ids) {
		return "", errors.Errorf(errors.RewriteError, "%d references but %d identifiers", len(refs), len(ids))
	}
	if err := checkRanges(text, refs); err != nil {
		return "", err
	}

	// Replace from the highest offset down so earlier offsets stay valid.
	out := text
	for i := len(refs) - 1; i >= 0; i-- {
		if ids[i] == "" {
			continue
		}
		lit, err := quote(URI(scheme, ids[i]))
		if err != nil {
			return "", err
		}
		out = out[:refs[i].Start] + lit + out[refs[i].End:]
	}
	return out, nil
}

func checkRanges(text string, refs []imports.Reference) error {
	prevEnd := 0
	for i, ref := range refs {
		if ref.Start < prevEnd || ref.End < ref.Start || ref.End > len(text) {
			return errors.Errorf(errors.RewriteError,
				"import %d range [%d,%d) is out of order, overlapping or out of bounds", i, ref.Start, ref.End)
		}
		prevEnd = ref.End
	}
	return nil
}

// quote produces a double-quoted string literal valid in JavaScript.
func quote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", errors.NewBundleError(errors.RewriteError, "cannot quote "+s, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
