package polar

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// UserInfo is the Polar OpenID Connect userinfo response.
type UserInfo struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string

	info *oidc.UserInfo
}

// Claims unmarshals the raw userinfo claims into v.
func (u *UserInfo) Claims(v any) error {
	if u.info == nil {
		return fmt.Errorf("polar: no userinfo claims")
	}
	return u.info.Claims(v)
}

// VerifiedEmail returns the email address if Polar marked it verified.
func (u *UserInfo) VerifiedEmail() (string, bool) {
	if u == nil || u.Email == "" || !u.EmailVerified {
		return "", false
	}
	return u.Email, true
}

// StableID returns "polar:<subject>", suitable as an application user key.
func (u *UserInfo) StableID() string {
	return StrategyName + ":" + u.Subject
}

// UserInfo fetches the userinfo of the tokens' owner. It needs the openid
// scope, and email and profile for the corresponding fields.
func (s *Strategy[U]) UserInfo(ctx context.Context, tokens *Tokens) (*UserInfo, error) {
	if tokens == nil || tokens.Token == nil {
		return nil, fmt.Errorf("polar: userinfo: no tokens")
	}
	info, err := s.provider.UserInfo(s.clientContext(ctx), oauth2.StaticTokenSource(tokens.Token))
	if err != nil {
		return nil, fmt.Errorf("polar: userinfo: %w", err)
	}
	var profile struct {
		Name string `json:"name"`
	}
	if err := info.Claims(&profile); err != nil {
		return nil, fmt.Errorf("polar: userinfo: %w", err)
	}
	return &UserInfo{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          profile.Name,
		info:          info,
	}, nil
}

// VerifyIDToken verifies the id_token returned with tokens against Polar's
// keys, issuer and this client's ID.
func (s *Strategy[U]) VerifyIDToken(ctx context.Context, tokens *Tokens) (*oidc.IDToken, error) {
	raw, ok := tokens.IDToken()
	if !ok {
		return nil, ErrMissingIDToken
	}
	verifier := s.provider.Verifier(&oidc.Config{ClientID: s.cfg.ClientID})
	return verifier.Verify(s.clientContext(ctx), raw)
}
