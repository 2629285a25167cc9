package polar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// Tokens is the token endpoint response. The strategy does not interpret it.
type Tokens struct {
	*oauth2.Token
}

// Scopes returns the granted scopes from the response "scope" field.
func (t *Tokens) Scopes() []string {
	if t == nil || t.Token == nil {
		return nil
	}
	s, _ := t.Extra("scope").(string)
	return strings.Fields(s)
}

// IDToken returns the raw id_token, present when openid was granted.
func (t *Tokens) IDToken() (string, bool) {
	if t == nil || t.Token == nil {
		return "", false
	}
	s, ok := t.Extra("id_token").(string)
	return s, ok && s != ""
}

// ValidateAuthorizationCode exchanges code and its PKCE verifier for tokens.
// The request is not retried.
func (s *Strategy[U]) ValidateAuthorizationCode(ctx context.Context, code, codeVerifier string) (*Tokens, error) {
	tok, err := s.oauth.Exchange(s.clientContext(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return &Tokens{Token: tok}, nil
}

// RefreshToken obtains new tokens with a refresh token.
func (s *Strategy[U]) RefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}
	ts := s.oauth.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return &Tokens{Token: tok}, nil
}

// TokenTypeHint tells the revocation endpoint what kind of token it gets.
type TokenTypeHint string

const (
	NoHint           TokenTypeHint = ""
	HintAccessToken  TokenTypeHint = "access_token"
	HintRefreshToken TokenTypeHint = "refresh_token"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// RevokeToken revokes an access or refresh token (RFC 7009).
func (s *Strategy[U]) RevokeToken(ctx context.Context, token string, hint TokenTypeHint) error {
	form := url.Values{
		"token":         {token},
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
	}
	if hint != NoHint {
		form.Set("token_type_hint", string(hint))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, RevocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client(ctx).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var oe struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorURI         string `json:"error_uri"`
	}
	if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
		return &TokenRequestError{
			Code:        oe.Error,
			Description: oe.ErrorDescription,
			URI:         oe.ErrorURI,
			StatusCode:  resp.StatusCode,
		}
	}
	return &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: body}
}

// client returns the configured client, then one set on ctx the way the
// oauth2 package accepts it, then http.DefaultClient.
func (s *Strategy[U]) client(ctx context.Context) *http.Client {
	if s.httpClient != nil {
		return s.httpClient
	}
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	return http.DefaultClient
}

// classifyTokenError maps oauth2 errors onto TokenRequestError and
// UnexpectedResponseError. Transport errors are returned unchanged.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if re.ErrorCode != "" {
			return &TokenRequestError{
				Code:        re.ErrorCode,
				Description: re.ErrorDescription,
				URI:         re.ErrorURI,
				StatusCode:  status,
				Cause:       err,
			}
		}
		return &UnexpectedResponseError{StatusCode: status, Body: re.Body, Cause: err}
	}

	var ue *url.Error
	if errors.As(err, &ue) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// Unparsable body or missing access_token.
	return &UnexpectedResponseError{Cause: err}
}
