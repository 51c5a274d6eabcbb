package graph

import (
	"context"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"modstream/internal/errors"
	"modstream/internal/frame"
	"modstream/internal/imports"
	"modstream/internal/resolve"
	"modstream/internal/source"
)

const root = "/pkg"

func newTestBuilder(t *testing.T, files map[string]string) *Builder {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, text := range files {
		if err := afero.WriteFile(fs, root+"/"+name, []byte(text), 0644); err != nil {
			t.Fatalf("WriteFile(%s) failed: %v", name, err)
		}
	}
	resolver, err := resolve.New(root)
	if err != nil {
		t.Fatal(err)
	}
	return NewBuilder(source.NewFSStore(fs), imports.NewPatternExtractor(), resolver)
}

func buildFiles(t *testing.T, files map[string]string, entry string) (*Collect, *Stats, error) {
	t.Helper()
	var sink Collect
	stats, err := newTestBuilder(t, files).Build(context.Background(), entry, &sink)
	return &sink, stats, err
}

func TestBuildLinearChain(t *testing.T) {
	t.Parallel()

	sink, stats, err := buildFiles(t, map[string]string{
		"a.js": `import { b } from "./b.js";` + "\nexport const a = b + 1;\n",
		"b.js": `import { c } from "./c.js";` + "\nexport const b = c + 1;\n",
		"c.js": "export const c = 1;\n",
	}, "a.js")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"./c.js", "./b.js", "./a.js"}
	if got := sink.Identifiers(); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if !strings.Contains(sink.Records[2].Text, `from "bundle://./b.js"`) {
		t.Errorf("a.js not rewritten: %q", sink.Records[2].Text)
	}
	if !strings.Contains(sink.Records[1].Text, `from "bundle://./c.js"`) {
		t.Errorf("b.js not rewritten: %q", sink.Records[1].Text)
	}
	if sink.Records[0].Text != "export const c = 1;\n" {
		t.Errorf("leaf text changed: %q", sink.Records[0].Text)
	}
	if stats.Modules != 3 || stats.Edges != 2 || stats.Entrypoint != "./a.js" {
		t.Errorf("stats = %+v", stats)
	}
	if stats.BuildID == "" {
		t.Error("stats should carry a build ID")
	}
}

func TestBuildFindsEveryStaticImport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		main string
	}{
		{"same line", `import { x } from "./x.js"; import { y } from "./y.js";` + "\nexport const z = x + y;\n"},
		{"byte order mark", "\uFEFF" + `import { x } from "./x.js";` + "\n" + `import { y } from "./y.js";` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, _, err := buildFiles(t, map[string]string{
				"a.js": tt.main,
				"x.js": "export const x = 1;\n",
				"y.js": "export const y = 2;\n",
			}, "a.js")
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			want := []string{"./x.js", "./y.js", "./a.js"}
			if got := sink.Identifiers(); !reflect.DeepEqual(got, want) {
				t.Fatalf("order = %v, want %v", got, want)
			}
			entry := sink.Records[2].Text
			for _, uri := range []string{`"bundle://./x.js"`, `"bundle://./y.js"`} {
				if !strings.Contains(entry, uri) {
					t.Errorf("a.js missing %s: %q", uri, entry)
				}
			}
			if strings.Contains(entry, `"./`) {
				t.Errorf("a.js kept a relative specifier: %q", entry)
			}
		})
	}
}

func TestBuildDiamondEmitsSharedDependencyOnce(t *testing.T) {
	t.Parallel()

	sink, stats, err := buildFiles(t, map[string]string{
		"a.js": "import \"./b.js\";\nimport \"./c.js\";\n",
		"b.js": "import { d } from './d.js';\nexport const b = d;\n",
		"c.js": "import { d } from './d.js';\nexport const c = d;\n",
		"d.js": "export const d = 4;\n",
	}, "/pkg/a.js")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"./d.js", "./b.js", "./c.js", "./a.js"}
	if got := sink.Identifiers(); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	// The reference that found d.js already finalized is rewritten the same way.
	for _, i := range []int{1, 2} {
		if !strings.Contains(sink.Records[i].Text, `from "bundle://./d.js"`) {
			t.Errorf("%s not rewritten: %q", sink.Records[i].Identifier, sink.Records[i].Text)
		}
	}
	if got := stats.Graph.Importers("./d.js"); !reflect.DeepEqual(got, []string{"./b.js", "./c.js"}) {
		t.Errorf("Importers(d) = %v", got)
	}
}

func TestBuildOrderIsTopological(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"src/main.js":              "import { addThree } from \"./functions/math.js\";\nimport { logTime } from \"./utils/timeLogger.js\";\nimport { three } from \"./numbers.js\";\nlogTime(addThree(three));\n",
		"src/numbers.js":           "export const three = 3;\n",
		"src/functions/basic.js":   "export function add(a, b) {\n  return a + b;\n}\n",
		"src/functions/math.js":    "import { add } from \"./basic.js\";\nimport { three } from \"../numbers.js\";\nexport const addThree = (x) => add(x, three);\n",
		"src/utils/timeLogger.js":  "import { add } from \"/src/functions/basic.js\";\nexport function logTime(v) {\n  console.log(add(Date.now(), 0), v);\n}\n",
		"src/unreferenced/dead.js": "export {};\n",
	}
	sink, stats, err := buildFiles(t, files, "src/main.js")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	pos := make(map[string]int)
	for i, id := range sink.Identifiers() {
		if _, dup := pos[id]; dup {
			t.Fatalf("%s emitted twice", id)
		}
		pos[id] = i
	}
	if len(pos) != 5 {
		t.Errorf("emitted %d modules, want 5: %v", len(pos), sink.Identifiers())
	}
	for _, id := range stats.Graph.Nodes() {
		for _, e := range stats.Graph.Imports(id) {
			if pos[e.To] >= pos[e.From] {
				t.Errorf("%s emitted at %d, before its dependency %s at %d", e.From, pos[e.From], e.To, pos[e.To])
			}
		}
	}
	if last := sink.Records[len(sink.Records)-1].Identifier; last != "./src/main.js" {
		t.Errorf("last record = %s, want the entrypoint", last)
	}
}

func TestBuildCycleEmitsNothing(t *testing.T) {
	t.Parallel()

	sink, _, err := buildFiles(t, map[string]string{
		"a.js": "import \"./b.js\";\n",
		"b.js": "import \"./a.js\";\n",
	}, "a.js")

	if !errors.HasCode(err, errors.CycleDetected) {
		t.Fatalf("error = %v, want CYCLE_DETECTED", err)
	}
	if len(sink.Records) != 0 {
		t.Errorf("emitted %v, want nothing", sink.Identifiers())
	}

	var be *errors.BundleError
	if !stderrors.As(err, &be) {
		t.Fatalf("error is not a BundleError: %T", err)
	}
	details, ok := be.Details.(errors.CycleDetails)
	if !ok {
		t.Fatalf("details = %T", be.Details)
	}
	if details.Identifier != "./a.js" || !reflect.DeepEqual(details.Stack, []string{"./a.js", "./b.js"}) {
		t.Errorf("details = %+v", details)
	}
}

func TestBuildCycleKeepsEarlierRecords(t *testing.T) {
	t.Parallel()

	sink, _, err := buildFiles(t, map[string]string{
		"a.js":    "import \"./leaf.js\";\nimport \"./b.js\";\n",
		"leaf.js": "export const leaf = true;\n",
		"b.js":    "import \"./b.js\";\n",
	}, "a.js")

	if !errors.HasCode(err, errors.CycleDetected) {
		t.Fatalf("error = %v, want CYCLE_DETECTED", err)
	}
	if got := sink.Identifiers(); !reflect.DeepEqual(got, []string{"./leaf.js"}) {
		t.Errorf("records = %v, want only the leaf emitted before the cycle", got)
	}
}

func TestBuildLeavesExternalImports(t *testing.T) {
	t.Parallel()

	sink, stats, err := buildFiles(t, map[string]string{
		"a.js": "import React from \"react\";\nimport data from \"https://cdn.example.com/x.js\";\nimport { b } from \"./b.js\";\n",
		"b.js": "export const b = 1;\n",
	}, "a.js")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	text := sink.Records[1].Text
	for _, keep := range []string{`"react"`, `"https://cdn.example.com/x.js"`, `"bundle://./b.js"`} {
		if !strings.Contains(text, keep) {
			t.Errorf("rewritten text %q lacks %s", text, keep)
		}
	}
	if stats.External != 2 {
		t.Errorf("External = %d, want 2", stats.External)
	}
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		entry string
		code  errors.ErrorCode
	}{
		{"missing entrypoint", map[string]string{}, "a.js", errors.LoadError},
		{"missing dependency", map[string]string{"a.js": "import \"./gone.js\";\n"}, "a.js", errors.LoadError},
		{"malformed import", map[string]string{"a.js": "import { x } \"./b.js\";\n"}, "a.js", errors.ParseError},
		{"escapes root", map[string]string{"a.js": "import \"../../etc/passwd.js\";\n"}, "a.js", errors.ResolveError},
		{"entrypoint outside root", map[string]string{}, "/elsewhere/a.js", errors.ResolveError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sink, _, err := buildFiles(t, tt.files, tt.entry)
			if !errors.HasCode(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
			if len(sink.Records) != 0 {
				t.Errorf("emitted %v", sink.Identifiers())
			}
		})
	}
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, map[string]string{"a.js": "export {};\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sink Collect
	if _, err := b.Build(ctx, "a.js", &sink); !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestBuildSinkErrorStops(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, map[string]string{
		"a.js": "import \"./b.js\";\n",
		"b.js": "export {};\n",
	})
	boom := stderrors.New("consumer went away")
	calls := 0
	sink := SinkFunc(func(context.Context, frame.Record) error {
		calls++
		return boom
	})

	if _, err := b.Build(context.Background(), "a.js", sink); !stderrors.Is(err, boom) {
		t.Errorf("error = %v, want sink error", err)
	}
	if calls != 1 {
		t.Errorf("sink called %d times, want 1", calls)
	}
}

func TestBuildCustomScheme(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/pkg/a.js", []byte("import \"./b.js\";\n"), 0644)
	_ = afero.WriteFile(fs, "/pkg/b.js", []byte("export {};\n"), 0644)
	resolver, _ := resolve.New(root)

	b := NewBuilder(source.NewFSStore(fs), imports.NewPatternExtractor(), resolver, WithScheme("app"))
	var sink Collect
	if _, err := b.Build(context.Background(), "a.js", &sink); err != nil {
		t.Fatal(err)
	}
	if sink.Records[1].Text != "import \"app://./b.js\";\n" {
		t.Errorf("text = %q", sink.Records[1].Text)
	}
}

func TestBuildIsRepeatable(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, map[string]string{
		"a.js": "import \"./b.js\";\n",
		"b.js": "export {};\n",
	})
	for i := 0; i < 2; i++ {
		var sink Collect
		if _, err := b.Build(context.Background(), "a.js", &sink); err != nil {
			t.Fatalf("build %d failed: %v", i, err)
		}
		if len(sink.Records) != 2 {
			t.Errorf("build %d emitted %d records", i, len(sink.Records))
		}
	}
}
