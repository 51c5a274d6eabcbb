package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"modstream/internal/slogutil"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		got := w.Header().Get("X-Request-ID")
		if len(got) != 36 {
			t.Errorf("X-Request-ID = %q, want a UUID", got)
		}
		if seen != got {
			t.Errorf("context ID %q != header ID %q", seen, got)
		}
	})

	t.Run("keeps client ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-42")
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "client-42" {
			t.Errorf("X-Request-ID = %q, want client-42", got)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	handler := RecoveryMiddleware(slogutil.NewDiscardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRecoveryMiddlewareRepanicsAbort(t *testing.T) {
	t.Parallel()

	handler := RecoveryMiddleware(slogutil.NewDiscardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", r)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestLoggingMiddlewareCapturesStatus(t *testing.T) {
	t.Parallel()

	var rw *responseWriter
	handler := LoggingMiddleware(slogutil.NewDiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if rw.status() != http.StatusTeapot {
		t.Errorf("status = %d", rw.status())
	}
	if rw.bytes != int64(len("short and stout")) {
		t.Errorf("bytes = %d", rw.bytes)
	}
}
