package client

import (
	"errors"
	"fmt"
	"net/http"
)

// EncodingError reports malformed parameters, parts or a malformed path.
// The request never reached the transport.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode request: %s", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// TransportError reports a network failure or an HTTP error status.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("request failed: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("request failed: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CancelledError reports an explicit caller-initiated cancellation.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("request cancelled: %s", e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// DecodingError reports a response body that does not match the expected response type.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("cannot decode response: %s", e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// IsEncodingError reports whether the error is an EncodingError.
func IsEncodingError(err error) bool {
	var target *EncodingError
	return errors.As(err, &target)
}

// IsTransportError reports whether the error is a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsCancelledError reports whether the error is a CancelledError.
func IsCancelledError(err error) bool {
	var target *CancelledError
	return errors.As(err, &target)
}

// IsDecodingError reports whether the error is a DecodingError.
func IsDecodingError(err error) bool {
	var target *DecodingError
	return errors.As(err, &target)
}
