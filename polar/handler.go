package polar

import (
	"errors"
	"net/http"

	"github.com/mnehpets/polarauth/endpoint"
)

// SuccessEndpoint renders the response after a user authenticated, e.g. by
// logging them into a session and redirecting.
type SuccessEndpoint[U any] func(w http.ResponseWriter, r *http.Request, user U, tokens *Tokens) (endpoint.Renderer, error)

// FailureEndpoint renders the response for a failed authentication.
type FailureEndpoint func(w http.ResponseWriter, r *http.Request, err error) (endpoint.Renderer, error)

type handlerConfig struct {
	processors []endpoint.Processor
	failure    FailureEndpoint
}

// HandlerOption configures NewHandler.
type HandlerOption func(*handlerConfig)

// WithProcessors adds processors (sessions, security headers) to the handler.
func WithProcessors(p ...endpoint.Processor) HandlerOption {
	return func(c *handlerConfig) {
		c.processors = append(c.processors, p...)
	}
}

// WithFailureEndpoint replaces DefaultFailureEndpoint.
func WithFailureEndpoint(f FailureEndpoint) HandlerOption {
	return func(c *handlerConfig) {
		c.failure = f
	}
}

// NewHandler serves both the login and the callback route: a request without
// a state parameter is redirected to Polar, one with a state parameter is
// treated as the callback. A nil success redirects to "/".
func NewHandler[U any](s *Strategy[U], success SuccessEndpoint[U], opts ...HandlerOption) http.Handler {
	cfg := handlerConfig{failure: DefaultFailureEndpoint}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.failure == nil {
		cfg.failure = DefaultFailureEndpoint
	}
	if success == nil {
		success = func(w http.ResponseWriter, r *http.Request, _ U, _ *Tokens) (endpoint.Renderer, error) {
			return &endpoint.RedirectRenderer{URL: "/", Status: http.StatusFound}, nil
		}
	}

	return endpoint.Handler(func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		res := s.Authenticate(r)
		switch res.Outcome {
		case OutcomeRedirect:
			return res.Redirect, nil
		case OutcomeAuthenticated:
			return success(w, r, res.User, res.Tokens)
		default:
			return cfg.failure(w, r, res.Err)
		}
	}, cfg.processors...)
}

// DefaultFailureEndpoint returns err as an endpoint error with the status
// and message from ErrorStatus.
func DefaultFailureEndpoint(_ http.ResponseWriter, _ *http.Request, err error) (endpoint.Renderer, error) {
	status, msg := ErrorStatus(err)
	return nil, endpoint.Error(status, msg, err)
}

// ErrorStatus maps an authentication error to an HTTP status and a message
// safe to show the user.
func ErrorStatus(err error) (int, string) {
	var pe *ProviderError
	var tre *TokenRequestError
	var ure *UnexpectedResponseError
	switch {
	case errors.Is(err, ErrMissingStateCookie):
		return http.StatusBadRequest, "login session expired, please try again"
	case errors.Is(err, ErrStateMismatch):
		return http.StatusBadRequest, "state mismatch"
	case errors.Is(err, ErrMissingCode):
		return http.StatusBadRequest, "missing authorization code"
	case errors.Is(err, ErrMissingCodeVerifier):
		return http.StatusBadRequest, "missing code verifier"
	case errors.As(err, &pe):
		return http.StatusBadRequest, "authorization failed: " + pe.Code
	case errors.As(err, &tre):
		return http.StatusBadGateway, "token exchange failed"
	case errors.As(err, &ure):
		return http.StatusBadGateway, "token exchange failed"
	}
	return http.StatusInternalServerError, ""
}
