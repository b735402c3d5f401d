// Package herr defines herald's error taxonomy. A turn must always produce
// some outbound text, so most of these errors are logged and degraded rather
// than propagated to the webhook caller.
package herr

import (
	"errors"
	"fmt"
	"net"
)

// SessionLoadError marks a session store read failure. Callers treat it as a
// fresh idle session rather than failing the turn.
type SessionLoadError struct {
	Sender string
	Err    error
}

func (e *SessionLoadError) Error() string {
	return fmt.Sprintf("session load for %s: %v", e.Sender, e.Err)
}

func (e *SessionLoadError) Unwrap() error { return e.Err }

// RetrievalError marks a single retrieval layer failure. The layer yields an
// empty result set; sibling layers are unaffected.
type RetrievalError struct {
	Layer string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval layer %s: %v", e.Layer, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// LLMTimeoutError marks a language-model fallback call that ran out of time.
// The router defaults to smalltalk instead of blocking the turn.
type LLMTimeoutError struct {
	Err error
}

func (e *LLMTimeoutError) Error() string {
	return fmt.Sprintf("language model timeout: %v", e.Err)
}

func (e *LLMTimeoutError) Unwrap() error { return e.Err }

// DeliveryError marks an outbound send failure. The turn still completes and
// persists state; retry is the transport's concern.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// TransientError wraps an error that is worth retrying, such as an upstream
// rate limit or a 5xx response.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps an error that should not be retried.
type PermanentError struct {
	Err        error
	StatusCode int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// FromStatusCode classifies an HTTP response code into the taxonomy.
func FromStatusCode(code int, err error) error {
	switch {
	case code == 429 || code >= 500:
		return &TransientError{Err: err, StatusCode: code}
	case code >= 400:
		return &PermanentError{Err: err, StatusCode: code}
	}
	return err
}
