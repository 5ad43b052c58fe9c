// Package exporterr defines the failure taxonomy shared by every export stage.
package exporterr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the top-level failure category
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindFetch        Kind = "fetch_error"
	KindExtraction   Kind = "extraction_error"
	KindRender       Kind = "render_error"
)

// Sub narrows a Kind
type Sub string

const (
	SubNone      Sub = ""
	SubTimeout   Sub = "timeout"
	SubNotFound  Sub = "not_found"
	SubEmpty     Sub = "empty"
	SubMalformed Sub = "malformed"
)

// Pipeline stage names used in logs and metrics
const (
	StageValidate   = "validate"
	StageFetch      = "fetch"
	StageExtract    = "extract"
	StageNormalize  = "normalize"
	StageSynthesize = "synthesize"
	StageRender     = "render"
	StageFinalize   = "finalize"
)

// Error is a terminal pipeline failure. Message is safe to show to callers;
// Err carries the internal cause and is only logged.
type Error struct {
	Kind    Kind
	Sub     Sub
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind and Sub, so errors.Is works against
// the package-level templates below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Sub == SubNone || e.Sub == t.Sub)
}

// Templates for errors.Is
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrFetch              = &Error{Kind: KindFetch}
	ErrFetchTimeout       = &Error{Kind: KindFetch, Sub: SubTimeout}
	ErrExtraction         = &Error{Kind: KindExtraction}
	ErrExtractionNotFound = &Error{Kind: KindExtraction, Sub: SubNotFound}
	ErrExtractionEmpty    = &Error{Kind: KindExtraction, Sub: SubEmpty}
	ErrMalformed          = &Error{Kind: KindExtraction, Sub: SubMalformed}
	ErrRender             = &Error{Kind: KindRender}
)

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Stage: StageValidate, Message: message}
}

func Fetch(message string, err error) *Error {
	return &Error{Kind: KindFetch, Stage: StageFetch, Message: message, Err: err}
}

func FetchTimeout(message string, err error) *Error {
	return &Error{Kind: KindFetch, Sub: SubTimeout, Stage: StageFetch, Message: message, Err: err}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindExtraction, Sub: SubNotFound, Stage: StageExtract, Message: message}
}

func Empty(message string) *Error {
	return &Error{Kind: KindExtraction, Sub: SubEmpty, Stage: StageNormalize, Message: message}
}

func Malformed(message string, err error) *Error {
	return &Error{Kind: KindExtraction, Sub: SubMalformed, Stage: StageExtract, Message: message, Err: err}
}

// Synthesis is a RenderError raised while building the printable document
func Synthesis(message string, err error) *Error {
	return &Error{Kind: KindRender, Stage: StageSynthesize, Message: message, Err: err}
}

func Render(message string, err error) *Error {
	return &Error{Kind: KindRender, Stage: StageRender, Message: message, Err: err}
}

// As extracts the *Error from a wrapped chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// HTTPStatus maps an error to the response status. Unclassified errors are 500.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case e.Kind == KindInvalidInput:
		return http.StatusBadRequest
	case e.Kind == KindExtraction && (e.Sub == SubNotFound || e.Sub == SubEmpty):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the caller-facing message, hiding internal causes
func PublicMessage(err error, fallback string) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}

// StageOf returns the failing stage, or "unknown"
func StageOf(err error) string {
	if e, ok := As(err); ok && e.Stage != "" {
		return e.Stage
	}
	return "unknown"
}
