package polar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/mnehpets/polarauth/endpoint"
	"github.com/mnehpets/polarauth/middleware"
	"golang.org/x/oauth2"
)

// VerifyFunc resolves the application user from a successful token exchange.
// Its errors are returned unchanged in the Result.
type VerifyFunc[U any] func(ctx context.Context, r *http.Request, tokens *Tokens) (U, error)

// Strategy authenticates users against Polar with the authorization code
// flow and PKCE. It holds no per-request state and is safe for concurrent use.
type Strategy[U any] struct {
	cfg        Config
	oauth      *oauth2.Config
	cookie     *middleware.Cookie
	verify     VerifyFunc[U]
	log        *slog.Logger
	httpClient *http.Client
	authParams AuthorizationParamsFunc
	provider   *oidc.Provider
}

// New creates a Strategy.
func New[U any](cfg Config, verify VerifyFunc[U], opts ...Option) (*Strategy[U], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if verify == nil {
		return nil, errors.New("polar: verify function is required")
	}

	o := options{
		cookieName:          DefaultCookieName,
		authorizationParams: identityParams,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.authorizationParams == nil {
		o.authorizationParams = identityParams
	}

	cookie, err := middleware.NewCookie(o.cookieName, o.cookieOptions...)
	if err != nil {
		return nil, err
	}

	s := &Strategy[U]{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopeStrings(cfg.Scopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthorizationEndpoint,
				TokenURL: TokenEndpoint,
				// client_id and client_secret go in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		cookie:     cookie,
		verify:     verify,
		log:        o.logger,
		httpClient: o.httpClient,
		authParams: o.authorizationParams,
	}

	// The key set keeps this context for its lifetime, so it must carry the
	// configured client.
	providerConfig := &oidc.ProviderConfig{
		IssuerURL:   Issuer,
		AuthURL:     AuthorizationEndpoint,
		TokenURL:    TokenEndpoint,
		UserInfoURL: UserInfoEndpoint,
		JWKSURL:     JWKSEndpoint,
		Algorithms:  []string{oidc.RS256, oidc.ES256},
	}
	s.provider = providerConfig.NewProvider(s.clientContext(context.Background()))

	return s, nil
}

// Name returns StrategyName.
func (s *Strategy[U]) Name() string {
	return StrategyName
}

// Cookie returns the state cookie definition.
func (s *Strategy[U]) Cookie() *middleware.Cookie {
	return s.cookie
}

// clientContext makes the oauth2 and oidc packages use the configured client.
func (s *Strategy[U]) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// Outcome is the kind of Result.
type Outcome int

const (
	// OutcomeFailed means Err is set.
	OutcomeFailed Outcome = iota
	// OutcomeRedirect means the request started a login; Redirect must be
	// rendered and nothing else done for this request.
	OutcomeRedirect
	// OutcomeAuthenticated means User and Tokens are set.
	OutcomeAuthenticated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Result is the outcome of Authenticate.
type Result[U any] struct {
	Outcome  Outcome
	Redirect *Redirect
	User     U
	Tokens   *Tokens
	Err      error
}

// Redirect sends the user agent to Polar with the state cookie set.
type Redirect struct {
	URL    string
	State  string
	Cookie *http.Cookie
}

// Render implements endpoint.Renderer with a 302.
func (rd *Redirect) Render(w http.ResponseWriter, r *http.Request) error {
	rr := &endpoint.RedirectRenderer{
		URL:     rd.URL,
		Status:  http.StatusFound,
		Cookies: []*http.Cookie{rd.Cookie},
	}
	return rr.Render(w, r)
}

func failed[U any](err error) *Result[U] {
	return &Result[U]{Outcome: OutcomeFailed, Err: err}
}

// Authenticate runs one step of the login flow for r.
//
// Without a state query parameter it starts a login and returns
// OutcomeRedirect. With one it validates the callback, exchanges the code,
// calls the verify function and returns OutcomeAuthenticated or OutcomeFailed.
func (s *Strategy[U]) Authenticate(r *http.Request) *Result[U] {
	ctx := r.Context()
	log := s.log.With(requestAttrs(r)...)
	query := r.URL.Query()
	store := FromRequest(r, s.cookie)

	if !query.Has("state") {
		return s.initiate(r, store, log)
	}

	log.DebugContext(ctx, "callback received", "pending_states", store.Len())
	code, verifier, err := validateCallback(query, store)
	if err != nil {
		log.DebugContext(ctx, "callback rejected", "error", err)
		return failed[U](err)
	}

	log.DebugContext(ctx, "exchanging authorization code")
	tokens, err := s.ValidateAuthorizationCode(ctx, code, verifier)
	if err != nil {
		log.DebugContext(ctx, "token exchange failed", "error", err)
		return failed[U](err)
	}

	log.DebugContext(ctx, "verifying user", "scopes", tokens.Scopes())
	user, err := s.verify(ctx, r, tokens)
	if err != nil {
		log.DebugContext(ctx, "verify failed", "error", err)
		return failed[U](err)
	}

	log.DebugContext(ctx, "user authenticated")
	return &Result[U]{Outcome: OutcomeAuthenticated, User: user, Tokens: tokens}
}

func (s *Strategy[U]) initiate(r *http.Request, store *StateStore, log *slog.Logger) *Result[U] {
	ar, err := s.CreateAuthorizationURL()
	if err != nil {
		return failed[U](err)
	}

	store.Set(ar.State, ar.CodeVerifier)
	cookie, err := store.ToSetCookie(s.cookie)
	if err != nil {
		return failed[U](err)
	}

	ar.URL.RawQuery = s.authParams(ar.URL.Query(), r).Encode()

	log.DebugContext(r.Context(), "authorization initiated", "pending_states", store.Len())
	return &Result[U]{
		Outcome: OutcomeRedirect,
		Redirect: &Redirect{
			URL:    ar.URL.String(),
			State:  ar.State,
			Cookie: cookie,
		},
	}
}
