package generator

import (
	"errors"
	"fmt"
	"strings"
)

// GenericFailureMessage is shown when the service gave no usable detail.
const GenericFailureMessage = "An error occurred while generating content"

var (
	// ErrSubmissionInFlight rejects a Submit while another one is pending.
	ErrSubmissionInFlight = errors.New("generation already in progress")
	// ErrSessionClosed rejects a Submit after Close.
	ErrSessionClosed = errors.New("session closed")
	// ErrMalformedResponse marks a success status whose body has no usable data.
	ErrMalformedResponse = errors.New("malformed response")
)

// ValidationError reports a request that must not reach the service.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError is a network failure or a non-success status from the
// governance service. Detail holds the service's own message, if any.
type TransportError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage converts a submission error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) && strings.TrimSpace(te.Detail) != "" {
		return te.Detail
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return GenericFailureMessage
}
