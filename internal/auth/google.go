package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// CallbackPath is the redirect target registered with Google.
const CallbackPath = "/auth/google/callback"

// TokenVerifier checks a Google ID token for the given audience.
type TokenVerifier func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleSignIn runs the OAuth 2.0 authorization code flow against Google
// and reads the verified email from the returned ID token.
type GoogleSignIn struct {
	config *oauth2.Config
	verify TokenVerifier
}

func NewGoogleSignIn(clientID, clientSecret, publicURL string) *GoogleSignIn {
	return &GoogleSignIn{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  strings.TrimRight(publicURL, "/") + CallbackPath,
			Scopes:       []string{"openid", "email", "profile"},
		},
		verify: idtoken.Validate,
	}
}

// AuthCodeURL is where the browser is sent to start sign-in.
func (g *GoogleSignIn) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades code for tokens and returns the verified email and
// display name of the Google account.
func (g *GoogleSignIn) Exchange(ctx context.Context, code string) (email, name string, err error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", "", fmt.Errorf("exchange code: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return "", "", errors.New("token response has no id_token")
	}

	payload, err := g.verify(ctx, raw, g.config.ClientID)
	if err != nil {
		return "", "", fmt.Errorf("verify id token: %w", err)
	}
	email, _ = payload.Claims["email"].(string)
	if email == "" {
		return "", "", errors.New("id token has no email claim")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return "", "", fmt.Errorf("google account email %s is not verified", email)
	}
	name, _ = payload.Claims["name"].(string)
	return email, name, nil
}
