package typedhttp

import (
	"errors"
	"fmt"
)

// Kind classifies why a call failed. The zero value means the call succeeded.
type Kind int

const (
	KindOK Kind = iota
	// KindInvalidRequest marks a descriptor that did not form a valid URL.
	// The transport is never contacted for such calls.
	KindInvalidRequest
	// KindTransport wraps network-level failures (DNS, TLS, connect, context).
	KindTransport
	// KindEmptyBody means the transport succeeded but returned no payload.
	KindEmptyBody
	// KindDecode means a payload was present but did not match the target shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalidRequest:
		return "invalid_request"
	case KindTransport:
		return "transport_error"
	case KindEmptyBody:
		return "empty_body"
	case KindDecode:
		return "decode_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CallError is the classified failure of a single call. The underlying cause,
// when any, is reachable through errors.Unwrap / errors.Is / errors.As.
type CallError struct {
	kind  Kind
	cause error
}

func newCallError(kind Kind, cause error) *CallError {
	return &CallError{kind: kind, cause: cause}
}

func (e *CallError) Kind() Kind {
	if e == nil {
		return KindOK
	}
	return e.kind
}

func (e *CallError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause == nil {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %v", e.kind, e.cause)
}

func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// KindOf extracts the failure kind from an error returned by this package.
// A nil error reports KindOK; a foreign error reports KindTransport as the
// most conservative classification.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind()
	}
	return KindTransport
}
