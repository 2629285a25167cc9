package polar

import (
	"errors"
	"fmt"
)

// Callback validation failures, in the order they are checked.
var (
	// ErrMissingStateCookie means the request carried no usable state cookie:
	// it was blocked, expired, or never set.
	ErrMissingStateCookie = errors.New("polar: missing state on cookie")
	// ErrStateMismatch means the callback state is not one this browser
	// started: tampering, replay, or a state lost to a concurrent login.
	ErrStateMismatch = errors.New("polar: state mismatch")
	ErrMissingCode   = errors.New("polar: missing code")
	// ErrMissingCodeVerifier means the store has the state but no verifier.
	ErrMissingCodeVerifier = errors.New("polar: missing code verifier")
)

var (
	ErrMissingRefreshToken = errors.New("polar: refresh token is required")
	ErrMissingIDToken      = errors.New("polar: token response has no id_token")
)

// ProviderError is an error Polar reported on the callback URL, e.g. when
// the user denied access.
type ProviderError struct {
	Code        string
	Description string
	URI         string
	State       string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("polar: provider error: %s (description: %s)", e.Code, e.Description)
	}
	return fmt.Sprintf("polar: provider error: %s", e.Code)
}

// TokenRequestError is an OAuth error body returned by the token or
// revocation endpoint.
type TokenRequestError struct {
	Code        string
	Description string
	URI         string
	StatusCode  int
	Cause       error
}

func (e *TokenRequestError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("polar: token request failed: %s (description: %s)", e.Code, e.Description)
	}
	return fmt.Sprintf("polar: token request failed: %s", e.Code)
}

func (e *TokenRequestError) Unwrap() error {
	return e.Cause
}

// UnexpectedResponseError is a token or revocation endpoint response that is
// neither a valid result nor an OAuth error body.
type UnexpectedResponseError struct {
	StatusCode int
	Body       []byte
	Cause      error
}

func (e *UnexpectedResponseError) Error() string {
	msg := "polar: unexpected token endpoint response"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnexpectedResponseError) Unwrap() error {
	return e.Cause
}
