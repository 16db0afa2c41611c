package mailer

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// OAuth2 holds the client credentials and long-lived refresh token used to
// mint SMTP access tokens.
type OAuth2 struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	RefreshToken string
	Scopes       []string
}

// TokenSource returns a source that refreshes access tokens on demand.
// A nil receiver yields a nil source, meaning password authentication.
func (o *OAuth2) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if o == nil {
		return nil, nil
	}
	if o.TokenURL == "" || o.RefreshToken == "" {
		return nil, errors.New("mailer oauth2: token_url and refresh_token are required")
	}
	cfg := &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Scopes:       o.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  o.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: o.RefreshToken}), nil
}
