package testutil

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	fixture := &FixtureContext{Root: "/work/pkg"}

	data := map[string]any{
		"buildId":  "0b7c",
		"location": "/work/pkg/src/a.js",
		"modules":  []any{"./b.js", "./a.js"},
		"stats":    map[string]any{"elapsed": 12, "bytes": 40},
	}

	got := string(MarshalNormalized(t, fixture, data))
	want := `{
  "location": "<fixture>/src/a.js",
  "modules": [
    "./b.js",
    "./a.js"
  ],
  "stats": {
    "bytes": 40
  }
}
`
	if got != want {
		t.Errorf("MarshalNormalized =\n%s\nwant\n%s", got, want)
	}
}

func TestLineDiff(t *testing.T) {
	t.Parallel()

	diff := lineDiff("a\nb\nc\nd\n", "a\nx\nc\nd\n", "plan.json")
	for _, want := range []string{"--- plan.json (expected)", "@@ line 2 @@", " a\n", "-b\n", "+x\n", " c\n"} {
		if !strings.Contains(diff, want) {
			t.Errorf("diff missing %q:\n%s", want, diff)
		}
	}
}

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	fixture := LoadFixture(t, "basic")
	if !strings.HasSuffix(fixture.ExpectedPath("plan"), filepath.Join("expected", "plan.json")) {
		t.Errorf("ExpectedPath = %q", fixture.ExpectedPath("plan"))
	}
	found := false
	for _, name := range AvailableFixtures(t) {
		if name == "basic" {
			found = true
		}
	}
	if !found {
		t.Error("basic fixture should be available")
	}
}
