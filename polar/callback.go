package polar

import "net/url"

// validateCallback checks a callback query against the pending states and
// returns the authorization code and its code verifier. Checks run in a fixed
// order so each failure names a distinct cause.
func validateCallback(query url.Values, store *StateStore) (code, verifier string, err error) {
	state := query.Get("state")

	if !store.Has() {
		return "", "", ErrMissingStateCookie
	}
	if !store.HasState(state) {
		return "", "", ErrStateMismatch
	}
	if query.Has("error") {
		return "", "", &ProviderError{
			Code:        query.Get("error"),
			Description: query.Get("error_description"),
			URI:         query.Get("error_uri"),
			State:       state,
		}
	}
	code = query.Get("code")
	if code == "" {
		return "", "", ErrMissingCode
	}
	verifier, ok := store.Get(state)
	if !ok || verifier == "" {
		return "", "", ErrMissingCodeVerifier
	}
	return code, verifier, nil
}
