package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/spf13/afero"

	"modstream/internal/frame"
	"modstream/internal/graph"
	"modstream/internal/imports"
	"modstream/internal/resolve"
	"modstream/internal/slogutil"
	"modstream/internal/source"
	"modstream/internal/targets"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"src/main.js":    "import { three } from \"./numbers.js\";\nimport { h } from \"preact\";\nconsole.log(three);\n",
		"src/numbers.js": "export const three = 3;\n",
		"src/loop.js":    "import \"./loop.js\";\n",
		"src/late.js":    "import \"./numbers.js\";\nimport \"./late.js\";\n",
	}
	for name, text := range files {
		if err := afero.WriteFile(fs, "/pkg/"+name, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}
	resolver, err := resolve.New("/pkg")
	if err != nil {
		t.Fatal(err)
	}
	builder := graph.NewBuilder(source.NewFSStore(fs), imports.NewPatternExtractor(), resolver)
	manifest := &targets.Manifest{Targets: []targets.Target{
		{Name: "app", Entrypoint: "src/main.js", Description: "demo"},
		{Name: "loop", Entrypoint: "src/loop.js"},
		{Name: "late", Entrypoint: "src/late.js"},
	}}
	return NewServer("localhost:0", builder, manifest, slogutil.NewDiscardLogger())
}

func get(t *testing.T, h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeIDs(t *testing.T, r io.Reader) []string {
	t.Helper()
	var ids []string
	for rec, err := range frame.NewDecoder(r).All() {
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		ids = append(ids, rec.Identifier)
	}
	return ids
}

func TestHealth(t *testing.T) {
	t.Parallel()

	w := get(t, newTestServer(t), "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Targets != 3 {
		t.Errorf("resp = %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestListBundles(t *testing.T) {
	t.Parallel()

	w := get(t, newTestServer(t), "/bundles", nil)
	var resp struct {
		Bundles []BundleInfo `json:"bundles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Bundles) != 3 || resp.Bundles[0].URL != "/bundles/app" {
		t.Errorf("bundles = %+v", resp.Bundles)
	}
}

func TestBundleStream(t *testing.T) {
	t.Parallel()

	w := get(t, newTestServer(t), "/bundles/app", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if ce := w.Header().Get("Content-Encoding"); ce != "" {
		t.Errorf("Content-Encoding = %q, want none", ce)
	}
	if !w.Flushed {
		t.Error("frames should be flushed as they are written")
	}

	ids := decodeIDs(t, w.Body)
	if want := []string{"./src/numbers.js", "./src/main.js"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("identifiers = %v, want %v", ids, want)
	}
}

func TestBundleStreamCompressed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	for _, tc := range []struct {
		accept string
		want   frame.Compression
	}{
		{"gzip", frame.CompressionGzip},
		{"gzip, zstd", frame.CompressionZstd},
	} {
		w := get(t, srv, "/bundles/app", map[string]string{"Accept-Encoding": tc.accept})
		if ce := w.Header().Get("Content-Encoding"); ce != string(tc.want) {
			t.Errorf("Accept-Encoding %q: Content-Encoding = %q", tc.accept, ce)
			continue
		}
		rc, err := frame.NewDecompressedReader(w.Body, tc.want)
		if err != nil {
			t.Fatal(err)
		}
		if ids := decodeIDs(t, rc); len(ids) != 2 {
			t.Errorf("%s: identifiers = %v", tc.want, ids)
		}
		rc.Close()
	}
}

func TestBundleErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/bundles/nope", http.StatusNotFound, "TARGET_NOT_FOUND"},
		{"/bundles/loop", http.StatusUnprocessableEntity, "CYCLE_DETECTED"},
		{"/no/such/route", http.StatusNotFound, "TARGET_NOT_FOUND"},
	}

	for _, tt := range tests {
		w := get(t, srv, tt.path, nil)
		if w.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, w.Code, tt.status)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Errorf("%s: body is not JSON: %s", tt.path, w.Body.String())
			continue
		}
		if resp.Code != tt.code {
			t.Errorf("%s: code = %q, want %q", tt.path, resp.Code, tt.code)
		}
	}
}

func TestBundleFailureAfterFirstFrameAbortsConnection(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(newTestServer(t))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/bundles/late")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (headers were already sent)", resp.StatusCode)
	}

	var ids []string
	var decodeErr error
	for rec, err := range frame.NewDecoder(resp.Body).All() {
		if err != nil {
			decodeErr = err
			break
		}
		ids = append(ids, rec.Identifier)
	}
	if decodeErr == nil {
		t.Error("expected the aborted stream to fail decoding")
	}
	if !reflect.DeepEqual(ids, []string{"./src/numbers.js"}) {
		t.Errorf("identifiers = %v", ids)
	}
}
