package testutil

import (
	"bytes"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"
)

// updateGolden rewrites golden files instead of comparing against them.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// CompareGolden normalizes got and compares it with the fixture's golden file
// name, failing with a diff on mismatch. With -update the golden file is
// written instead.
func CompareGolden(t *testing.T, fixture *FixtureContext, name string, got any) {
	t.Helper()

	normalized := MarshalNormalized(t, fixture, got)
	goldenPath := fixture.ExpectedPath(name)

	if *updateGolden {
		UpdateGolden(t, fixture, name, normalized)
		t.Logf("Updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	switch {
	case stderrors.Is(err, os.ErrNotExist):
		t.Fatalf("Golden file missing: %s\n\nGot:\n%s\nRun with -update to create it:\n  go test ./... -run %s -update",
			goldenPath, normalized, t.Name())
	case err != nil:
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(normalized, expected) {
		t.Fatalf("Golden mismatch for %s:\n%s\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, lineDiff(string(expected), string(normalized), goldenPath), t.Name())
	}
}

// UpdateGolden writes data to the fixture's golden file name.
func UpdateGolden(t *testing.T, fixture *FixtureContext, name string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(fixture.ExpectedDir, 0o755); err != nil {
		t.Fatalf("Failed to create expected directory: %v", err)
	}
	if err := os.WriteFile(fixture.ExpectedPath(name), data, 0o644); err != nil {
		t.Fatalf("Failed to write golden file: %v", err)
	}
}

// lineDiff reports the differing middle of two texts after trimming their
// common leading and trailing lines, with up to three lines of context.
func lineDiff(expected, got, path string) string {
	exp := strings.Split(expected, "\n")
	act := strings.Split(got, "\n")

	prefix := 0
	for prefix < len(exp) && prefix < len(act) && exp[prefix] == act[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(exp)-prefix && suffix < len(act)-prefix &&
		exp[len(exp)-1-suffix] == act[len(act)-1-suffix] {
		suffix++
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s (expected)\n", path)
	fmt.Fprintf(&buf, "+++ %s (got)\n", path)
	fmt.Fprintf(&buf, "@@ line %d @@\n", prefix+1)

	for _, line := range exp[max(0, prefix-3):prefix] {
		buf.WriteString(" " + line + "\n")
	}
	for _, line := range exp[prefix : len(exp)-suffix] {
		buf.WriteString("-" + line + "\n")
	}
	for _, line := range act[prefix : len(act)-suffix] {
		buf.WriteString("+" + line + "\n")
	}
	for _, line := range exp[len(exp)-suffix : min(len(exp), len(exp)-suffix+3)] {
		buf.WriteString(" " + line + "\n")
	}
	return buf.String()
}
