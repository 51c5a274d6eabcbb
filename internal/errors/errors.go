package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// CycleDetected indicates a module transitively imports itself
	CycleDetected ErrorCode = "CYCLE_DETECTED"
	// LoadError indicates a module's source could not be retrieved
	LoadError ErrorCode = "LOAD_ERROR"
	// ParseError indicates a module's import declarations could not be extracted
	ParseError ErrorCode = "PARSE_ERROR"
	// ResolveError indicates an import specifier could not be mapped to an identifier
	ResolveError ErrorCode = "RESOLVE_ERROR"
	// RewriteError indicates import ranges were inconsistent with the module text
	RewriteError ErrorCode = "REWRITE_ERROR"
	// TruncatedFrame indicates the stream ended inside a frame
	TruncatedFrame ErrorCode = "TRUNCATED_FRAME"
	// InvalidUTF8 indicates a frame payload is not valid UTF-8
	InvalidUTF8 ErrorCode = "INVALID_UTF8"
	// FrameTooLarge indicates a frame length exceeds the allowed maximum
	FrameTooLarge ErrorCode = "FRAME_TOO_LARGE"
	// EmptyBundle indicates a stream carried no records at all
	EmptyBundle ErrorCode = "EMPTY_BUNDLE"
	// DuplicateModule indicates an identifier was registered twice
	DuplicateModule ErrorCode = "DUPLICATE_MODULE"
	// UnresolvedImport indicates a module imports an identifier that is not registered
	UnresolvedImport ErrorCode = "UNRESOLVED_IMPORT"
	// TargetNotFound indicates an unknown bundle target name
	TargetNotFound ErrorCode = "TARGET_NOT_FOUND"
	// ConfigInvalid indicates configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditSource suggests changing the bundled sources
	EditSource FixActionType = "edit-source"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
}

// BundleError represents a modstream error with code, message, and suggestions
type BundleError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewBundleError creates a new BundleError. Suggested fixes registered for
// the code are attached automatically.
func NewBundleError(code ErrorCode, message string, cause error) *BundleError {
	return &BundleError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Errorf creates a BundleError with a formatted message and no cause.
func Errorf(code ErrorCode, format string, args ...interface{}) *BundleError {
	return NewBundleError(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *BundleError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BundleError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *BundleError) WithDetails(details interface{}) *BundleError {
	e.Details = details
	return e
}

// CodeOf returns the code of the outermost BundleError in err's chain,
// or the empty code when there is none.
func CodeOf(err error) ErrorCode {
	var be *BundleError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return ""
}

// HasCode reports whether any BundleError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var be *BundleError
		if !stderrors.As(err, &be) {
			return false
		}
		if be.Code == code {
			return true
		}
		err = be.cause
	}
	return false
}

// CycleDetails describes the import chain that closed a cycle.
type CycleDetails struct {
	Identifier string   `json:"identifier"`
	Stack      []string `json:"stack"`
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	CycleDetected: {
		{
			Type:        EditSource,
			Description: "Break the import cycle; circular module dependencies cannot be streamed",
		},
	},
	ParseError: {
		{
			Type:        RunCommand,
			Command:     "modstream bundle --parser pattern <entrypoint>",
			Description: "Retry with the pattern-based import scanner",
		},
	},
	TargetNotFound: {
		{
			Type:        RunCommand,
			Command:     "modstream config show",
			Description: "Check the targets file configured for this package",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
