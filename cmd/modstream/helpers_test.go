package main

import (
	"testing"

	"modstream/internal/graph"
	"modstream/internal/imports"
	"modstream/internal/resolve"
	"modstream/internal/source"
	"modstream/internal/testutil"
)

// fixtureRoot returns the absolute root of the sample package.
func fixtureRoot(t *testing.T) string {
	t.Helper()
	return testutil.LoadFixture(t, "basic").Root
}

func fixtureBuilder(t *testing.T) *graph.Builder {
	t.Helper()
	resolver, err := resolve.New(fixtureRoot(t))
	if err != nil {
		t.Fatalf("resolve.New: %v", err)
	}
	return graph.NewBuilder(source.NewFSStore(nil), imports.NewPatternExtractor(), resolver)
}

// fixtureOrder is the emission order of src/main.js.
var fixtureOrder = []string{
	"./src/utils/timeLogger.js",
	"./src/numbers.js",
	"./src/functions/basic.js",
	"./src/functions/math.js",
	"./src/main.js",
}
