package polar

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mnehpets/polarauth/middleware"
)

// StrategyName identifies this strategy.
const StrategyName = "polar"

// DefaultCookieName is the default name of the state cookie.
const DefaultCookieName = "polar"

// Polar endpoints. These are fixed; tests and proxies redirect them with
// WithHTTPClient rather than by configuration.
const (
	AuthorizationEndpoint = "https://polar.sh/oauth2/authorize"
	TokenEndpoint         = "https://api.polar.sh/v1/oauth2/token"
	RevocationEndpoint    = "https://api.polar.sh/v1/oauth2/revoke"

	Issuer           = "https://polar.sh"
	UserInfoEndpoint = "https://api.polar.sh/v1/oauth2/userinfo"
	JWKSEndpoint     = "https://api.polar.sh/.well-known/jwks.json"
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	// RedirectURI must match a redirect URI registered with Polar.
	RedirectURI string
	Scopes      []Scope
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("polar: client id is required")
	}
	if c.ClientSecret == "" {
		return errors.New("polar: client secret is required")
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return fmt.Errorf("polar: invalid redirect uri: %w", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("polar: redirect uri %q must be an absolute http(s) URL", c.RedirectURI)
	}
	for _, s := range c.Scopes {
		if s == "" || strings.ContainsAny(string(s), " \t\n") {
			return fmt.Errorf("polar: invalid scope %q", s)
		}
	}
	return nil
}

// AuthorizationParamsFunc may rewrite the authorization URL query before the
// redirect is issued, e.g. to add provider-specific parameters.
type AuthorizationParamsFunc func(params url.Values, r *http.Request) url.Values

type options struct {
	cookieName          string
	cookieOptions       []middleware.CookieOption
	logger              *slog.Logger
	httpClient          *http.Client
	authorizationParams AuthorizationParamsFunc
}

// Option configures a Strategy.
type Option func(*options)

// WithCookieName overrides the state cookie name.
func WithCookieName(name string) Option {
	return func(o *options) {
		o.cookieName = name
	}
}

// WithCookieOptions passes attributes (domain, path, secure, SameSite,
// max-age, HttpOnly) through to the state cookie.
func WithCookieOptions(opts ...middleware.CookieOption) Option {
	return func(o *options) {
		o.cookieOptions = append(o.cookieOptions, opts...)
	}
}

// WithCookieKeys seals the state cookie with an AEAD, so clients can neither
// read the code verifiers nor forge states.
func WithCookieKeys(keyID string, keys map[string][]byte) Option {
	return WithCookieOptions(middleware.WithKeys(keyID, keys))
}

// WithLogger sets the logger for debug log points. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHTTPClient sets the client used for token, revocation, userinfo and
// JWKS requests. Timeouts are the client's responsibility.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithAuthorizationParams installs an AuthorizationParamsFunc.
func WithAuthorizationParams(f AuthorizationParamsFunc) Option {
	return func(o *options) {
		o.authorizationParams = f
	}
}

func identityParams(params url.Values, _ *http.Request) url.Values {
	return params
}
