package polar

import (
	"net/http"
	"net/url"
	"sort"

	"github.com/mnehpets/polarauth/middleware"
)

// StateStore maps pending state tokens to their PKCE code verifiers. It lives
// only in the state cookie, encoded as a query string: state1=verifier1&...
//
// Consumed states are not pruned; they expire with the cookie.
type StateStore struct {
	states map[string]string
}

// NewStateStore returns an empty store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]string)}
}

// FromRequest merges every state cookie on r into one store. Missing,
// unopenable or malformed cookies contribute nothing.
func FromRequest(r *http.Request, cookie *middleware.Cookie) *StateStore {
	store := NewStateStore()
	for _, v := range cookie.Values(r) {
		store.merge(string(v))
	}
	return store
}

// ParseStateStore decodes a serialized store. A malformed value yields an
// empty store.
func ParseStateStore(value string) *StateStore {
	store := NewStateStore()
	store.merge(value)
	return store
}

func (s *StateStore) merge(raw string) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return
	}
	for state, verifiers := range values {
		if state == "" || len(verifiers) == 0 || verifiers[0] == "" {
			continue
		}
		if _, ok := s.states[state]; !ok {
			s.states[state] = verifiers[0]
		}
	}
}

// Set records verifier for state, replacing any existing entry.
func (s *StateStore) Set(state, verifier string) {
	s.states[state] = verifier
}

// Has reports whether the store holds any state.
func (s *StateStore) Has() bool {
	return len(s.states) > 0
}

// HasState reports whether state is pending.
func (s *StateStore) HasState(state string) bool {
	_, ok := s.states[state]
	return ok
}

// Get returns the code verifier for state.
func (s *StateStore) Get(state string) (string, bool) {
	v, ok := s.states[state]
	return v, ok
}

// Len returns the number of pending states.
func (s *StateStore) Len() int {
	return len(s.states)
}

// States returns the pending states, sorted.
func (s *StateStore) States() []string {
	out := make([]string, 0, len(s.states))
	for k := range s.states {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String returns the query string encoding, sorted by state.
func (s *StateStore) String() string {
	values := make(url.Values, len(s.states))
	for k, v := range s.states {
		values.Set(k, v)
	}
	return values.Encode()
}

// ToSetCookie encodes the whole store into cookie with its attributes.
func (s *StateStore) ToSetCookie(cookie *middleware.Cookie) (*http.Cookie, error) {
	return cookie.Encode([]byte(s.String()), 0)
}
