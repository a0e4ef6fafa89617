// Package diderr collects the error taxonomy shared by every package in this
// module. Validation failures, proof failures, and log-verification failures
// all surface as a *Error carrying a Kind and the offending identifier, so
// that callers can use errors.Is/errors.As instead of string matching.
package diderr

import (
	"errors"
	"fmt"
)

// Kind names a category of failure. Kinds are not Go types: one Error struct
// carries a Kind value, avoiding a type per failure mode.
type Kind string

const (
	KindInvalidDid          Kind = "invalidDid"
	KindInvalidDidUrl       Kind = "invalidDidUrl"
	KindUnsupportedMethod   Kind = "unsupportedMethod"
	KindUnsupportedAlgo     Kind = "unsupportedAlgorithm"
	KindUnsupportedSuite    Kind = "unsupportedCryptosuite"
	KindInvalidKey          Kind = "invalidKey"
	KindInvalidPublicKey    Kind = "invalidPublicKey"
	KindInvalidSignature    Kind = "invalidSignature"
	KindInvalidPatch        Kind = "invalidPatch"
	KindInvalidOperation    Kind = "invalidOperation"
	KindNotFound            Kind = "notFound"
	KindInvalidLog          Kind = "invalidLog"
	KindWitnessThreshold    Kind = "witnessThresholdNotMet"
	KindIO                  Kind = "ioError"
	KindExpired             Kind = "expired"
)

// Error is the structured error every exported validation/verification
// function in this module returns on failure.
type Error struct {
	Kind Kind

	// DID, URL and VersionID identify the offending resource. At most one
	// is normally set; all are optional.
	DID       string
	URL       string
	VersionID string

	// Index is the offending entry index in a webvh log, or -1 when not
	// applicable.
	Index int

	// Msg is a human-readable explanation.
	Msg string

	// Err wraps an underlying cause, if any.
	Err error
}

// New builds an *Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Index: -1}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause, Index: -1}
}

// WithDID returns a copy of e with DID set.
func (e *Error) WithDID(did string) *Error {
	c := *e
	c.DID = did
	return &c
}

// WithURL returns a copy of e with URL set.
func (e *Error) WithURL(url string) *Error {
	c := *e
	c.URL = url
	return &c
}

// WithVersionID returns a copy of e with VersionID set.
func (e *Error) WithVersionID(v string) *Error {
	c := *e
	c.VersionID = v
	return &c
}

// WithIndex returns a copy of e with Index set.
func (e *Error) WithIndex(i int) *Error {
	c := *e
	c.Index = i
	return &c
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.DID != "" {
		msg += fmt.Sprintf(" (did=%s)", e.DID)
	}
	if e.URL != "" {
		msg += fmt.Sprintf(" (url=%s)", e.URL)
	}
	if e.VersionID != "" {
		msg += fmt.Sprintf(" (versionId=%s)", e.VersionID)
	}
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (index=%d)", e.Index)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements the errors.Unwrap convention.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target names the same Kind, so that
// errors.Is(err, diderr.New(diderr.KindNotFound, "")) works regardless of
// the message/identifiers attached.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Is reports whether kind matches err's Kind, walking Unwrap chains.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
