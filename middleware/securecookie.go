package middleware

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrCookieFormat  = errors.New("invalid cookie format")
	ErrCookieInvalid = errors.New("invalid cookie")
	ErrCookieConfig  = errors.New("invalid cookie configuration")
)

// maxCookieLen bounds how much attacker-controlled data is decoded from a
// single cookie value. Browsers cap cookies around 4KB.
const maxCookieLen = 8192

// DefaultAEADKeysize is the key size for the default AEAD (XChaCha20-Poly1305).
const DefaultAEADKeysize = chacha20poly1305.KeySize

// SecureCookieCodec seals and opens cookie values with an AEAD.
//
// Sealed format: keyID "." base64url(nonce || ciphertext). Keys holds every
// accepted key; KeyID selects the one used for sealing.
type SecureCookieCodec struct {
	KeyID string
	Keys  map[string][]byte

	// NewAEAD constructs the AEAD for a key.
	NewAEAD func(key []byte) (cipher.AEAD, error)
}

// NewSecureCookieCodec validates the key set and returns a codec.
func NewSecureCookieCodec(keyID string, keys map[string][]byte, newAEAD func(key []byte) (cipher.AEAD, error)) (*SecureCookieCodec, error) {
	if keys == nil {
		return nil, errors.New("keys must not be nil")
	}
	if _, ok := keys[keyID]; !ok {
		return nil, errors.New("keyID not found in keys")
	}
	if newAEAD == nil {
		return nil, errors.New("newAEAD must not be nil")
	}
	for id, k := range keys {
		if _, err := newAEAD(k); err != nil {
			return nil, fmt.Errorf("invalid key %s: %w", id, err)
		}
	}
	return &SecureCookieCodec{
		KeyID:   keyID,
		Keys:    keys,
		NewAEAD: newAEAD,
	}, nil
}

// Seal encrypts plain, binding it to aad.
func (sc *SecureCookieCodec) Seal(plain, aad []byte) (string, error) {
	if sc == nil {
		return "", ErrCookieConfig
	}
	key, ok := sc.Keys[sc.KeyID]
	if !ok {
		return "", ErrCookieConfig
	}
	aead, err := sc.NewAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plain, aad)
	return sc.KeyID + "." + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Any key in Keys is accepted.
func (sc *SecureCookieCodec) Open(value string, aad []byte) ([]byte, error) {
	if sc == nil {
		return nil, ErrCookieConfig
	}
	keyID, enc, ok := strings.Cut(value, ".")
	if !ok || keyID == "" || enc == "" {
		return nil, ErrCookieFormat
	}
	key, ok := sc.Keys[keyID]
	if !ok {
		return nil, ErrCookieInvalid
	}
	sealed, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return nil, ErrCookieFormat
	}
	aead, err := sc.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCookieFormat
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrCookieInvalid
	}
	return plain, nil
}

// Cookie describes a named cookie and its attributes, and encodes values into
// it. Without keys, values are stored as-is and must already be cookie-safe.
// With keys (WithKeys), values are sealed with SecureCookieCodec.
type Cookie struct {
	name     string
	path     string
	domain   string
	secure   bool
	httpOnly bool
	sameSite http.SameSite
	maxAge   int

	keyID   string
	keys    map[string][]byte
	newAEAD func([]byte) (cipher.AEAD, error)

	// Codec is nil for plain cookies.
	Codec *SecureCookieCodec
}

// CookieOption configures a Cookie.
type CookieOption func(*Cookie)

// WithPath sets the cookie path.
func WithPath(path string) CookieOption {
	return func(c *Cookie) {
		c.path = path
	}
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) CookieOption {
	return func(c *Cookie) {
		c.domain = domain
	}
}

// WithSecure sets the Secure flag.
func WithSecure(secure bool) CookieOption {
	return func(c *Cookie) {
		c.secure = secure
	}
}

// WithHTTPOnly sets the HttpOnly flag.
func WithHTTPOnly(httpOnly bool) CookieOption {
	return func(c *Cookie) {
		c.httpOnly = httpOnly
	}
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(sameSite http.SameSite) CookieOption {
	return func(c *Cookie) {
		c.sameSite = sameSite
	}
}

// WithMaxAge sets the default lifetime of encoded cookies.
func WithMaxAge(d time.Duration) CookieOption {
	return func(c *Cookie) {
		c.maxAge = int(d.Seconds())
	}
}

// WithKeys seals cookie values. keys holds all accepted keys, keyID the one
// used for new cookies.
func WithKeys(keyID string, keys map[string][]byte) CookieOption {
	return func(c *Cookie) {
		c.keyID = keyID
		c.keys = keys
	}
}

// WithAEAD replaces the AEAD used for sealing (e.g. AES-GCM).
func WithAEAD(f func([]byte) (cipher.AEAD, error)) CookieOption {
	return func(c *Cookie) {
		c.newAEAD = f
	}
}

// NewCookie creates a Cookie.
//
// Defaults:
//   - Path: /
//   - HttpOnly: true
//   - Secure: true
//   - SameSite: Lax
//   - MaxAge: 5 minutes
//   - not sealed
func NewCookie(name string, opts ...CookieOption) (*Cookie, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty cookie name", ErrCookieConfig)
	}
	c := &Cookie{
		name:     name,
		path:     "/",
		secure:   true,
		httpOnly: true,
		sameSite: http.SameSiteLaxMode,
		maxAge:   int((5 * time.Minute).Seconds()),
		newAEAD:  chacha20poly1305.NewX,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.path == "" {
		c.path = "/"
	}
	if c.keys != nil {
		codec, err := NewSecureCookieCodec(c.keyID, c.keys, c.newAEAD)
		if err != nil {
			return nil, err
		}
		c.Codec = codec
	}
	return c, nil
}

// Name returns the cookie name.
func (c *Cookie) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// MaxAge returns the configured lifetime in seconds.
func (c *Cookie) MaxAge() int {
	return c.maxAge
}

// Sealed reports whether values are encrypted.
func (c *Cookie) Sealed() bool {
	return c.Codec != nil
}

// aad binds the sealed value to the cookie name, domain, path and secure flag.
func (c *Cookie) aad() []byte {
	secure := "f"
	if c.secure {
		secure = "t"
	}
	return []byte(c.name + ":" + c.domain + ":" + c.path + ":" + secure)
}

// Encode returns an http.Cookie carrying plain. maxAge <= 0 uses the
// configured default.
func (c *Cookie) Encode(plain []byte, maxAge int) (*http.Cookie, error) {
	if maxAge <= 0 {
		maxAge = c.maxAge
	}
	if maxAge <= 0 {
		return nil, ErrCookieConfig
	}

	value := string(plain)
	if c.Codec != nil {
		sealed, err := c.Codec.Seal(plain, c.aad())
		if err != nil {
			return nil, err
		}
		value = sealed
	}
	if len(value) > maxCookieLen {
		return nil, ErrCookieFormat
	}

	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     c.path,
		Domain:   c.domain,
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		Secure:   c.secure,
		HttpOnly: c.httpOnly,
		SameSite: c.sameSite,
	}, nil
}

// Decode returns the plain value of hc, opening it if the cookie is sealed.
func (c *Cookie) Decode(hc *http.Cookie) ([]byte, error) {
	if hc == nil || hc.Value == "" || len(hc.Value) > maxCookieLen {
		return nil, ErrCookieFormat
	}
	if hc.Name != c.name {
		return nil, ErrCookieInvalid
	}
	if c.Codec == nil {
		return []byte(hc.Value), nil
	}
	return c.Codec.Open(hc.Value, c.aad())
}

// Values decodes every cookie on r named like c. Cookies that fail to decode
// are skipped.
func (c *Cookie) Values(r *http.Request) [][]byte {
	var out [][]byte
	for _, hc := range r.Cookies() {
		if hc.Name != c.name {
			continue
		}
		b, err := c.Decode(hc)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Clear returns a cookie that deletes c in the client.
func (c *Cookie) Clear() *http.Cookie {
	if c == nil {
		return nil
	}
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     c.path,
		Domain:   c.domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.secure,
		HttpOnly: c.httpOnly,
		SameSite: c.sameSite,
	}
}
