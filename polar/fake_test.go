package polar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// fakePolar serves Polar's endpoints. Requests to the real hosts are routed
// to it by the client it returns.
type fakePolar struct {
	srv *httptest.Server

	mu            sync.Mutex
	tokenRequests []url.Values
	revokeForms   []url.Values

	// token handles the token endpoint; defaults to a fixed bundle.
	token  http.HandlerFunc
	revoke http.HandlerFunc
	extra  map[string]http.HandlerFunc
}

func newFakePolar(t *testing.T) *fakePolar {
	t.Helper()
	f := &fakePolar{extra: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePolar) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/v1/oauth2/token":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.tokenRequests = append(f.tokenRequests, r.PostForm)
		h := f.token
		f.mu.Unlock()
		if h == nil {
			h = tokenResponse("mocked", "user:read benefits:read")
		}
		h(w, r)
	case "/v1/oauth2/revoke":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.revokeForms = append(f.revokeForms, r.PostForm)
		h := f.revoke
		f.mu.Unlock()
		if h == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		h(w, r)
	default:
		f.mu.Lock()
		h, ok := f.extra[r.URL.Path]
		f.mu.Unlock()
		if ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}
}

func (f *fakePolar) setToken(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = h
}

func (f *fakePolar) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extra[path] = h
}

func (f *fakePolar) tokenForms() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.tokenRequests...)
}

// client routes polar.sh and api.polar.sh to the fake server.
func (f *fakePolar) client() *http.Client {
	target, _ := url.Parse(f.srv.URL)
	return &http.Client{Transport: &rerouteTransport{target: target}}
}

type rerouteTransport struct {
	target *url.URL
}

func (rt *rerouteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

func tokenResponse(accessToken, scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  accessToken,
			"expires_in":    3600,
			"refresh_token": "mocked-refresh",
			"scope":         scope,
			"token_type":    "Bearer",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type testUser struct {
	ID string
}

var testConfig = Config{
	ClientID:     "MY_CLIENT_ID",
	ClientSecret: "MY_CLIENT_SECRET",
	RedirectURI:  "https://example.com/callback",
	Scopes:       []Scope{ScopeUserRead, ScopeBenefitsRead},
}

func newTestStrategy(t *testing.T, f *fakePolar, verify VerifyFunc[testUser], opts ...Option) *Strategy[testUser] {
	t.Helper()
	if verify == nil {
		verify = func(ctx context.Context, r *http.Request, tokens *Tokens) (testUser, error) {
			return testUser{ID: "123"}, nil
		}
	}
	if f != nil {
		opts = append([]Option{WithHTTPClient(f.client())}, opts...)
	}
	s, err := New(testConfig, verify, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// login runs an initiation and returns the redirect.
func login(t *testing.T, s *Strategy[testUser], cookies ...*http.Cookie) *Redirect {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "https://remix.auth/login", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	res := s.Authenticate(r)
	if res.Outcome != OutcomeRedirect {
		t.Fatalf("Authenticate outcome = %v (err %v), want redirect", res.Outcome, res.Err)
	}
	return res.Redirect
}

func callbackRequest(state, code string, cookies ...*http.Cookie) *http.Request {
	q := url.Values{}
	q.Set("state", state)
	if code != "" {
		q.Set("code", code)
	}
	r := httptest.NewRequest(http.MethodGet, "https://example.com/callback?"+q.Encode(), nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}
