package testutil

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

// volatileFields differ between runs and are dropped before comparison.
var volatileFields = map[string]bool{
	"buildId":   true,
	"requestId": true,
	"elapsed":   true,
	"timestamp": true,
	"startedAt": true,
	"uptime":    true,
}

// Normalize converts data to its generic JSON form, drops volatile fields
// and replaces the fixture root in strings with <fixture>. Slice order is
// kept: emission order is part of what golden files pin down.
func Normalize(t *testing.T, fixture *FixtureContext, data any) any {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}
	return normalizeValue(generic, filepath.ToSlash(fixture.Root))
}

func normalizeValue(v any, root string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if volatileFields[k] {
				continue
			}
			out[k] = normalizeValue(child, root)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeValue(child, root)
		}
		return out
	case string:
		s := strings.ReplaceAll(val, "\\", "/")
		if root != "" {
			s = strings.ReplaceAll(s, root, "<fixture>")
		}
		return s
	default:
		return v
	}
}

// MarshalNormalized normalizes data and marshals it to stable JSON bytes:
// sorted keys, 2-space indentation and a trailing newline.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, data any) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Normalize(t, fixture, data)); err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return buf.Bytes()
}
