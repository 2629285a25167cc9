package polar

import (
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// CodeChallengeMethod is the only PKCE method used.
const CodeChallengeMethod = "S256"

// AuthorizationRequest is one login attempt.
type AuthorizationRequest struct {
	State        string
	CodeVerifier string
	// URL is the authorization endpoint URL. The orchestrator still applies
	// the AuthorizationParamsFunc before redirecting to it.
	URL *url.URL
}

// CreateAuthorizationURL generates a fresh state and code verifier and the
// authorization URL carrying the state and the S256 code challenge.
func (s *Strategy[U]) CreateAuthorizationURL() (*AuthorizationRequest, error) {
	// Both are 32 random bytes, base64url encoded.
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	raw := s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("polar: building authorization url: %w", err)
	}
	return &AuthorizationRequest{
		State:        state,
		CodeVerifier: verifier,
		URL:          u,
	}, nil
}
