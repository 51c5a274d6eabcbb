package targets

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"modstream/internal/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `
[[target]]
name = "app"
entrypoint = "src/main.js"
description = "The demo app"

[[target]]
name = "admin"
entrypoint = "src/admin.js"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := m.Names(); !reflect.DeepEqual(got, []string{"admin", "app"}) {
		t.Errorf("Names = %v", got)
	}
	app, err := m.Get("app")
	if err != nil {
		t.Fatal(err)
	}
	if app.Entrypoint != "src/main.js" || app.Description != "The demo app" {
		t.Errorf("app = %+v", app)
	}
	if _, err := m.Get("nope"); !errors.HasCode(err, errors.TargetNotFound) {
		t.Errorf("Get(nope) error = %v, want TARGET_NOT_FOUND", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	m, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Targets) != 0 {
		t.Errorf("Targets = %v", m.Targets)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "[[target]]\nname = \"app\"\nentry = \"src/main.js\"\n"},
		{"syntax", "[[target]\nname = \"app\"\n"},
		{"duplicate", "[[target]]\nname = \"a\"\nentrypoint = \"a.js\"\n[[target]]\nname = \"a\"\nentrypoint = \"b.js\"\n"},
		{"absolute entry", "[[target]]\nname = \"a\"\nentrypoint = \"/a.js\"\n"},
		{"no name", "[[target]]\nentrypoint = \"a.js\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Load(writeManifest(t, tt.content)); !errors.HasCode(err, errors.ConfigInvalid) {
				t.Errorf("error = %v, want CONFIG_INVALID", err)
			}
		})
	}
}

func TestAddAndSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFile)
	m := &Manifest{}
	if err := m.Add(Target{Name: "app", Entrypoint: "src/main.js"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(Target{Name: "app", Entrypoint: "src/other.js"}); err == nil {
		t.Error("duplicate Add should fail")
	}
	if err := m.Add(Target{Name: "bad name", Entrypoint: "x.js"}); err == nil {
		t.Error("invalid Add should fail")
	}
	if len(m.Targets) != 1 {
		t.Fatalf("Targets = %v", m.Targets)
	}
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Targets, m.Targets) {
		t.Errorf("loaded %+v, want %+v", loaded.Targets, m.Targets)
	}
}
