package middleware

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newAESGCMAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func randomKeys(t *testing.T, ids ...string) map[string][]byte {
	t.Helper()
	keys := make(map[string][]byte, len(ids))
	for _, id := range ids {
		k := make([]byte, DefaultAEADKeysize)
		if _, err := rand.Read(k); err != nil {
			t.Fatalf("rand.Read(key): %v", err)
		}
		keys[id] = k
	}
	return keys
}

func TestNewCookie_Defaults(t *testing.T) {
	c, err := NewCookie("state")
	if err != nil {
		t.Fatalf("NewCookie: %v", err)
	}
	if c.Sealed() {
		t.Fatal("cookie without keys is sealed")
	}
	ck, err := c.Encode([]byte("a=b&c=d"), 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if ck.Name != "state" || ck.Value != "a=b&c=d" {
		t.Fatalf("cookie: got %s=%s", ck.Name, ck.Value)
	}
	if ck.Path != "/" || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected attributes: %+v", ck)
	}
	if ck.MaxAge != 300 {
		t.Fatalf("MaxAge: got %d want 300", ck.MaxAge)
	}
	if d := time.Until(ck.Expires); d < 290*time.Second || d > 310*time.Second {
		t.Fatalf("Expires: got %v from now", d)
	}

	if _, err := NewCookie(""); !errors.Is(err, ErrCookieConfig) {
		t.Fatalf("empty name: got %v", err)
	}
}

func TestCookie_Attributes(t *testing.T) {
	c, err := NewCookie("sc",
		WithPath("/auth"), WithDomain("example.com"), WithSecure(false),
		WithHTTPOnly(false), WithSameSite(http.SameSiteStrictMode), WithMaxAge(time.Hour))
	if err != nil {
		t.Fatalf("NewCookie: %v", err)
	}
	ck, err := c.Encode([]byte("v"), 60)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if ck.Path != "/auth" || ck.Domain != "example.com" || ck.Secure || ck.HttpOnly || ck.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected attributes: %+v", ck)
	}
	if ck.MaxAge != 60 {
		t.Fatalf("MaxAge: got %d want 60", ck.MaxAge)
	}
	if c.MaxAge() != 3600 {
		t.Fatalf("default MaxAge: got %d", c.MaxAge())
	}

	clear := c.Clear()
	if clear.MaxAge != -1 || clear.Value != "" || clear.Path != "/auth" || clear.Domain != "example.com" {
		t.Fatalf("Clear: %+v", clear)
	}
}

func TestCookie_SealedRoundTrip(t *testing.T) {
	keys := randomKeys(t, "a")
	c, err := NewCookie("sc", WithKeys("a", keys))
	if err != nil {
		t.Fatalf("NewCookie: %v", err)
	}
	if !c.Sealed() {
		t.Fatal("cookie with keys is not sealed")
	}

	ck, err := c.Encode([]byte("hello world"), 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(ck.Value, "a.") || strings.Contains(ck.Value, "hello") {
		t.Fatalf("sealed value: %q", ck.Value)
	}
	got, err := c.Decode(ck)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("Decode: got %q", got)
	}
}

func TestCookie_KeyRotation(t *testing.T) {
	keys := randomKeys(t, "old", "new")
	oldCookie, _ := NewCookie("sc", WithKeys("old", keys))
	newCookie, _ := NewCookie("sc", WithKeys("new", keys))

	ck, err := oldCookie.Encode([]byte("payload"), 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := newCookie.Decode(ck)
	if err != nil || string(got) != "payload" {
		t.Fatalf("Decode with rotated key: %q, %v", got, err)
	}

	delete(keys, "old")
	onlyNew, _ := NewCookie("sc", WithKeys("new", keys))
	if _, err := onlyNew.Decode(ck); !errors.Is(err, ErrCookieInvalid) {
		t.Fatalf("retired key: got %v", err)
	}
}

func TestCookie_Tampering(t *testing.T) {
	keys := randomKeys(t, "a")
	c, _ := NewCookie("sc", WithKeys("a", keys))
	ck, _ := c.Encode([]byte("payload"), 0)

	tests := []struct {
		name  string
		value string
		want  error
	}{
		{"empty", "", ErrCookieFormat},
		{"no key id", "abcdef", ErrCookieFormat},
		{"unknown key", "zz." + strings.SplitN(ck.Value, ".", 2)[1], ErrCookieInvalid},
		{"bad base64", "a.!!!", ErrCookieFormat},
		{"short", "a.AAAA", ErrCookieFormat},
		{"flipped", flipByte(ck.Value), ErrCookieInvalid},
		{"oversized", "a." + strings.Repeat("A", maxCookieLen), ErrCookieFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(&http.Cookie{Name: "sc", Value: tt.value})
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v want %v", err, tt.want)
			}
		})
	}
}

// flipByte changes a character inside the ciphertext.
func flipByte(s string) string {
	b := []byte(s)
	i := len(b) - 10
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

// A sealed value is bound to the cookie it was issued for.
func TestCookie_BoundToAttributes(t *testing.T) {
	keys := randomKeys(t, "a")
	c1, _ := NewCookie("sc", WithKeys("a", keys), WithPath("/"))
	c2, _ := NewCookie("sc", WithKeys("a", keys), WithPath("/auth"))
	other, _ := NewCookie("other", WithKeys("a", keys))

	ck, _ := c1.Encode([]byte("payload"), 0)
	if _, err := c2.Decode(ck); !errors.Is(err, ErrCookieInvalid) {
		t.Fatalf("different path: got %v", err)
	}
	if _, err := other.Decode(ck); !errors.Is(err, ErrCookieInvalid) {
		t.Fatalf("different name: got %v", err)
	}
}

func TestCookie_CustomAEAD(t *testing.T) {
	keys := map[string][]byte{"a": make([]byte, 16)}
	c, err := NewCookie("sc", WithKeys("a", keys), WithAEAD(newAESGCMAEAD))
	if err != nil {
		t.Fatalf("NewCookie: %v", err)
	}
	ck, err := c.Encode([]byte("payload"), 0)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, err := c.Decode(ck); err != nil || string(got) != "payload" {
		t.Fatalf("Decode: %q, %v", got, err)
	}

	// A 16-byte key is too short for the default XChaCha20-Poly1305.
	if _, err := NewCookie("sc", WithKeys("a", keys)); err == nil {
		t.Fatal("expected invalid key error")
	}
}

func TestNewCookie_InvalidKeys(t *testing.T) {
	if _, err := NewCookie("sc", WithKeys("missing", randomKeys(t, "a"))); err == nil {
		t.Fatal("expected error for unknown key id")
	}
	if _, err := NewSecureCookieCodec("a", nil, newAESGCMAEAD); err == nil {
		t.Fatal("expected error for nil keys")
	}
	if _, err := NewSecureCookieCodec("a", randomKeys(t, "a"), nil); err == nil {
		t.Fatal("expected error for nil AEAD")
	}
}

func TestCookie_EncodeTooLarge(t *testing.T) {
	c, _ := NewCookie("sc")
	if _, err := c.Encode([]byte(strings.Repeat("x", maxCookieLen+1)), 0); !errors.Is(err, ErrCookieFormat) {
		t.Fatalf("got %v", err)
	}
}

func TestCookie_Values(t *testing.T) {
	keys := randomKeys(t, "a")
	c, _ := NewCookie("sc", WithKeys("a", keys))
	ck1, _ := c.Encode([]byte("one"), 0)
	ck2, _ := c.Encode([]byte("two"), 0)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(ck1)
	r.AddCookie(&http.Cookie{Name: "sc", Value: "garbage"})
	r.AddCookie(&http.Cookie{Name: "other", Value: "x"})
	r.AddCookie(ck2)

	values := c.Values(r)
	if len(values) != 2 || string(values[0]) != "one" || string(values[1]) != "two" {
		t.Fatalf("Values: got %q", values)
	}
}
