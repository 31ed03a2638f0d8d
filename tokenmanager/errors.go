package tokenmanager

import (
	"errors"
	"fmt"
)

// ErrRefreshExhausted is matched by every *RefreshExhaustedError.
var ErrRefreshExhausted = errors.New("tokenmanager: token refresh exhausted")

// AuthError describes one failed call to the identity endpoint.
type AuthError struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Code and Description carry the endpoint's "error" and
	// "error_description" fields when present.
	Code        string
	Description string

	// Err is the underlying cause (transport or decoding failure), if any.
	Err error
}

func (e *AuthError) Error() string {
	msg := "tokenmanager: auth request failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.StatusCode)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Code)
		if e.Description != "" {
			msg = fmt.Sprintf("%s (%s)", msg, e.Description)
		}
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RefreshExhaustedError is returned when every refresh attempt failed.
type RefreshExhaustedError struct {
	Attempts int

	// Err is the failure of the final attempt, usually an *AuthError.
	Err error
}

func (e *RefreshExhaustedError) Error() string {
	return fmt.Sprintf("tokenmanager: token refresh failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RefreshExhaustedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrRefreshExhausted) report true.
func (e *RefreshExhaustedError) Is(target error) bool {
	return target == ErrRefreshExhausted
}
