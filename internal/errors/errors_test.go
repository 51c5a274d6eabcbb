package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewBundleError(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewBundleError(CycleDetected, "cycle through ./a.js", cause)

	if err.Code != CycleDetected {
		t.Errorf("Code = %v, want %v", err.Code, CycleDetected)
	}
	if err.Message != "cycle through ./a.js" {
		t.Errorf("Message = %q, want %q", err.Message, "cycle through ./a.js")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestBundleError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      LoadError,
			message:   "cannot load /pkg/a.js",
			cause:     errors.New("file does not exist"),
			wantParts: []string{"LOAD_ERROR", "cannot load /pkg/a.js", "file does not exist"},
		},
		{
			name:      "without cause",
			code:      TruncatedFrame,
			message:   "stream ended inside text payload",
			cause:     nil,
			wantParts: []string{"TRUNCATED_FRAME", "stream ended inside text payload"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewBundleError(tt.code, tt.message, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestBundleError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewBundleError(InternalError, "something went wrong", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}

	errNoCause := Errorf(EmptyBundle, "no records in %s", "stdin")
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestCodeOfAndHasCode(t *testing.T) {
	inner := NewBundleError(LoadError, "cannot load ./b.js", errors.New("missing"))
	outer := NewBundleError(ParseError, "wrapping", inner)
	wrapped := fmt.Errorf("build failed: %w", outer)

	if got := CodeOf(wrapped); got != ParseError {
		t.Errorf("CodeOf() = %v, want %v", got, ParseError)
	}
	if !HasCode(wrapped, LoadError) {
		t.Error("HasCode(LoadError) = false, want true")
	}
	if HasCode(wrapped, CycleDetected) {
		t.Error("HasCode(CycleDetected) = true, want false")
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %v, want empty", got)
	}
}

func TestBundleError_WithDetails(t *testing.T) {
	err := Errorf(CycleDetected, "cycle")
	details := CycleDetails{Identifier: "./a.js", Stack: []string{"./a.js", "./b.js"}}

	if result := err.WithDetails(details); result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	got, ok := err.Details.(CycleDetails)
	if !ok || len(got.Stack) != 2 {
		t.Errorf("Details = %#v, want CycleDetails with 2 stack entries", err.Details)
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		CycleDetected,
		LoadError,
		ParseError,
		ResolveError,
		RewriteError,
		TruncatedFrame,
		InvalidUTF8,
		FrameTooLarge,
		EmptyBundle,
		DuplicateModule,
		UnresolvedImport,
		TargetNotFound,
		ConfigInvalid,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantLen int
	}{
		{CycleDetected, 1},
		{ParseError, 1},
		{TargetNotFound, 1},
		{TruncatedFrame, 0},
		{LoadError, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := len(GetSuggestedFixes(tt.code)); got != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, got, tt.wantLen)
			}
		})
	}
}
