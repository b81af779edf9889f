package errors

import (
	"errors"
	"fmt"
)

// Kind classifies session errors so adapters can render them without
// inspecting error text.
type Kind string

const (
	KindInvalidParameters  Kind = "INVALID_PARAMETERS"
	KindNoConnectivity     Kind = "NO_CONNECTIVITY"
	KindTimeout            Kind = "TIMEOUT"
	KindCaptureUnavailable Kind = "CAPTURE_UNAVAILABLE"
	KindEncoderInitFailed  Kind = "ENCODER_INIT_FAILED"
	KindDecoderInitFailed  Kind = "DECODER_INIT_FAILED"
	KindTransportLost      Kind = "TRANSPORT_LOST"
	KindBuildFailed        Kind = "BUILD_FAILED"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// SessionError is an error with a kind and enough context for display.
type SessionError struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements error interface
func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *SessionError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *SessionError) WithContext(key string, value interface{}) *SessionError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error
func (e *SessionError) WithCause(err error) *SessionError {
	e.Cause = err
	return e
}

// New creates a new session error
func New(kind Kind, message string) *SessionError {
	return &SessionError{
		Kind:    kind,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a session error
func Wrap(err error, kind Kind, message string) *SessionError {
	return &SessionError{
		Kind:    kind,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// Common error constructors
func NewInvalidParameters(message string) *SessionError {
	return New(KindInvalidParameters, message)
}

func NewNoConnectivity(message string) *SessionError {
	return New(KindNoConnectivity, message)
}

func NewTimeout(message string) *SessionError {
	return New(KindTimeout, message)
}

func NewCaptureUnavailable(message string) *SessionError {
	return New(KindCaptureUnavailable, message)
}

func NewEncoderInitFailed(message string) *SessionError {
	return New(KindEncoderInitFailed, message)
}

func NewDecoderInitFailed(message string) *SessionError {
	return New(KindDecoderInitFailed, message)
}

func NewTransportLost(message string) *SessionError {
	return New(KindTransportLost, message)
}

func NewBuildFailed(message string) *SessionError {
	return New(KindBuildFailed, message)
}

// IsSessionError checks if error is a SessionError
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}

// GetSessionError extracts a SessionError from the error chain
func GetSessionError(err error) *SessionError {
	var se *SessionError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// KindOf returns the kind of the error, or KindInternal when the chain
// carries no SessionError.
func KindOf(err error) Kind {
	if se := GetSessionError(err); se != nil {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries a SessionError of the
// given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
