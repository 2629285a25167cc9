// Package polar authenticates users with Polar (polar.sh) using the OAuth 2.0
// authorization code flow with PKCE.
//
// A Strategy is stateless on the server. Pending logins live in a cookie that
// maps each state token to its code verifier, so any instance can handle the
// callback of a login another instance started.
//
// Usage:
//
//	type User struct{ ID, Email string }
//
//	var s *polar.Strategy[User]
//	s, err := polar.New(polar.Config{
//		ClientID:     clientID,
//		ClientSecret: clientSecret,
//		RedirectURI:  "https://app.example/auth/polar",
//		Scopes:       []polar.Scope{polar.ScopeOpenID, polar.ScopeEmail},
//	}, func(ctx context.Context, r *http.Request, t *polar.Tokens) (User, error) {
//		info, err := s.UserInfo(ctx, t)
//		if err != nil {
//			return User{}, err
//		}
//		return User{ID: info.Subject, Email: info.Email}, nil
//	})
//
//	mux.Handle("GET /auth/polar", polar.NewHandler(s, onSuccess))
//
// Authenticate can also be called directly. It returns a Result that is
// either a Redirect to render, an authenticated User, or an error:
//
//	res := s.Authenticate(r)
//	switch res.Outcome {
//	case polar.OutcomeRedirect:
//		res.Redirect.Render(w, r)
//	case polar.OutcomeAuthenticated:
//		// res.User, res.Tokens
//	case polar.OutcomeFailed:
//		// errors.Is(res.Err, polar.ErrStateMismatch), errors.As(res.Err, &providerErr), ...
//	}
package polar
