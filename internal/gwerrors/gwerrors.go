// Package gwerrors is the gateway's closed error-kind taxonomy. Every
// handler-facing error is classified into one of these kinds so the gateway
// layer can map it to an HTTP status without inspecting error strings.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind is a closed set of error categories (spec §7).
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidInput
	KindUpstreamUnavailable
	KindProtectionChallenge
	KindTimeout
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindProtectionChallenge:
		return "protection_challenge"
	case KindTimeout:
		return "timeout"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind so gateway handlers can map it
// to a status code without string-matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an existing error under kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, defaulting to KindUnknown when err isn't
// (or doesn't wrap) a *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// Sentinel errors for the package collaborators that don't need the full
// classified-error shape (mirrors the teacher's realdebrid package idiom).
var (
	ErrNoStreamsFound    = errors.New("gwerrors: no streams found")
	ErrSessionNotFound   = errors.New("gwerrors: swarm session not found")
	ErrSessionNotReady   = errors.New("gwerrors: swarm session not ready")
	ErrFileNotFound      = errors.New("gwerrors: no matching media file")
	ErrChallengeDetected = errors.New("gwerrors: protection challenge detected")
	ErrCapacityExceeded  = errors.New("gwerrors: session capacity exceeded")
)
