package middleware

// Session processor for applications that log a user in after a successful
// Polar authentication. The polar package itself never persists a login.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/mnehpets/polarauth/endpoint"
)

var ErrNilSession = errors.New("nil session")

// SessionIDBytes is the number of random bytes in a session ID.
//
// 16 bytes -> 22 chars raw URL base64.
const SessionIDBytes = 16

// DefaultSessionPeriod is the default session lifetime.
const DefaultSessionPeriod = 24 * time.Hour

// DefaultSessionCookieName is the default name for the session cookie.
const DefaultSessionCookieName = "polar_session"

// Session is request-scoped login state.
type Session interface {
	// ID returns the session identifier, or "" when logged out.
	ID() string
	// Username returns the logged in user and true, or "" and false.
	Username() (string, bool)
	// Login starts a fresh session for username, discarding any previous one.
	Login(username string) error
	// Logout clears the session.
	Logout() error
	// Expires returns the session expiry, or the zero time when logged out.
	Expires() time.Time
}

// sessionData is the CBOR payload sealed into the session cookie.
type sessionData struct {
	ID       string    `cbor:"1,keyasint"`
	Username string    `cbor:"2,keyasint"`
	Expires  time.Time `cbor:"3,keyasint"`
}

type session struct {
	data   *sessionData
	period time.Duration
	dirty  bool
}

func (s *session) ID() string {
	if s == nil || s.data == nil {
		return ""
	}
	return s.data.ID
}

func (s *session) Username() (string, bool) {
	if s == nil || s.data == nil {
		return "", false
	}
	return s.data.Username, true
}

func (s *session) Login(username string) error {
	if s == nil {
		return ErrNilSession
	}
	// A new ID on login prevents session fixation.
	b := make([]byte, SessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	s.data = &sessionData{
		ID:       base64.RawURLEncoding.EncodeToString(b),
		Username: username,
		Expires:  time.Now().Truncate(time.Second).Add(s.period),
	}
	s.dirty = true
	return nil
}

func (s *session) Logout() error {
	if s == nil {
		return ErrNilSession
	}
	s.data = nil
	s.dirty = true
	return nil
}

func (s *session) Expires() time.Time {
	if s == nil || s.data == nil {
		return time.Time{}
	}
	return s.data.Expires
}

type sessionContextKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the Session stored in ctx, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	if !ok || sess == nil {
		return nil, false
	}
	return sess, true
}

// SessionProcessor loads the session cookie into the request context and
// writes it back, via endpoint.Defer, when it changed.
type SessionProcessor struct {
	cookie *Cookie
	period time.Duration
}

// SessionOption configures a SessionProcessor.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	cookieName    string
	cookieOptions []CookieOption
	period        time.Duration
}

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(c *sessionConfig) {
		c.cookieName = name
	}
}

// WithSessionCookieOptions adds cookie attribute options.
func WithSessionCookieOptions(opts ...CookieOption) SessionOption {
	return func(c *sessionConfig) {
		c.cookieOptions = append(c.cookieOptions, opts...)
	}
}

// WithSessionPeriod sets the session lifetime.
func WithSessionPeriod(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.period = d
	}
}

// NewSessionProcessor returns a SessionProcessor sealing sessions with keys.
func NewSessionProcessor(keyID string, keys map[string][]byte, opts ...SessionOption) (*SessionProcessor, error) {
	cfg := sessionConfig{
		cookieName: DefaultSessionCookieName,
		period:     DefaultSessionPeriod,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.period <= 0 {
		return nil, errors.New("session period must be positive")
	}
	if len(keys) == 0 {
		return nil, errors.New("session keys are required")
	}

	cookieOpts := append([]CookieOption{WithMaxAge(cfg.period)}, cfg.cookieOptions...)
	cookieOpts = append(cookieOpts, WithKeys(keyID, keys))
	cookie, err := NewCookie(cfg.cookieName, cookieOpts...)
	if err != nil {
		return nil, err
	}
	return &SessionProcessor{cookie: cookie, period: cfg.period}, nil
}

// Process implements endpoint.Processor.
func (p *SessionProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	sess := &session{period: p.period}

	if c, err := r.Cookie(p.cookie.Name()); err == nil {
		var sd sessionData
		plain, err := p.cookie.Decode(c)
		if err == nil {
			err = cbor.Unmarshal(plain, &sd)
		}
		switch {
		case err != nil:
			// Tampered or stale format.
			sess.dirty = true
		case sd.Expires.IsZero() || !time.Now().Before(sd.Expires):
			sess.dirty = true
		default:
			sess.data = &sd
		}
	}

	endpoint.Defer(r.Context(), func(w http.ResponseWriter) {
		p.maybeSetCookie(w, sess)
	})

	*r = *r.WithContext(WithSession(r.Context(), sess))
	return next(w, r)
}

func (p *SessionProcessor) maybeSetCookie(w http.ResponseWriter, sess *session) {
	if !sess.dirty {
		return
	}
	if sess.data == nil {
		http.SetCookie(w, p.cookie.Clear())
		return
	}
	maxAge := int(time.Until(sess.data.Expires).Seconds())
	if maxAge <= 0 {
		http.SetCookie(w, p.cookie.Clear())
		return
	}
	plain, err := cbor.Marshal(sess.data)
	if err != nil {
		return
	}
	c, err := p.cookie.Encode(plain, maxAge)
	if err != nil {
		return
	}
	http.SetCookie(w, c)
}

var _ endpoint.Processor = (*SessionProcessor)(nil)
var _ Session = (*session)(nil)
