package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindSafetyRejected
	KindNoEventsFound
	KindMalformedAIResponse
	KindInvalidDateFormat
	KindAddressLookupFailed
	KindUpstreamAPIError
)

func (k Kind) String() string {
	switch k {
	case KindSafetyRejected:
		return "safety_rejected"
	case KindNoEventsFound:
		return "no_events_found"
	case KindMalformedAIResponse:
		return "malformed_ai_response"
	case KindInvalidDateFormat:
		return "invalid_date_format"
	case KindAddressLookupFailed:
		return "address_lookup_failed"
	case KindUpstreamAPIError:
		return "upstream_api_error"
	default:
		return "unknown"
	}
}

type Stage string

const (
	StageSafety    Stage = "safety_check"
	StageExtract   Stage = "extract"
	StageCorrect   Stage = "correct"
	StageNormalize Stage = "date_normalize"
	StageEnrich    Stage = "address_enrich"
)

// Error is the only error type the pipeline returns. errors.Is matches on Kind.
type Error struct {
	Kind  Kind
	Stage Stage
	// Reason is the classifier explanation of a safety rejection.
	Reason string
	// Index is the position of the failed event, -1 when the failure is not per event.
	Index int
	Err   error
}

var (
	ErrSafetyRejected      = &Error{Kind: KindSafetyRejected, Index: -1}
	ErrNoEventsFound       = &Error{Kind: KindNoEventsFound, Index: -1}
	ErrMalformedAIResponse = &Error{Kind: KindMalformedAIResponse, Index: -1}
	ErrInvalidDateFormat   = &Error{Kind: KindInvalidDateFormat, Index: -1}
	ErrAddressLookupFailed = &Error{Kind: KindAddressLookupFailed, Index: -1}
	ErrUpstreamAPIError    = &Error{Kind: KindUpstreamAPIError, Index: -1}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Index: -1, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Index >= 0 {
		fmt.Fprintf(&b, " (event %d)", e.Index)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain of err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// atStage returns a copy of err annotated with stage and event index; unknown errors become upstream errors.
func atStage(err error, stage Stage, index int) error {
	var e *Error
	if !errors.As(err, &e) {
		e = newError(KindUpstreamAPIError, err)
	}
	annotated := *e
	annotated.Stage = stage
	if index >= 0 {
		annotated.Index = index
	}
	return &annotated
}
