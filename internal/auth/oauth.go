// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth covers the two halves of signing in to the console: the
// Google authorization-code exchange that yields an access token for the
// backend, and resolving a backend session token to an admin identity.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Sign-in intents carried through the OAuth round trip.
const (
	IntentLogin    = "login"
	IntentRegister = "register"
)

// ValidIntent reports whether s is a known intent.
func ValidIntent(s string) bool {
	return s == IntentLogin || s == IntentRegister
}

// ErrStateMismatch is returned when the callback state does not match the session.
var ErrStateMismatch = errors.New("oauth state mismatch")

// CodeExchanger abstracts the OAuth provider.
type CodeExchanger interface {
	// AuthCodeURL returns the consent page URL carrying state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (string, error)
}

// GoogleOAuth implements CodeExchanger with golang.org/x/oauth2.
type GoogleOAuth struct {
	config *oauth2.Config
}

// NewGoogleOAuth configures the Google endpoint with the profile scopes the
// backend needs to create an account.
func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
}

// AuthCodeURL implements CodeExchanger.
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange implements CodeExchanger.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("missing authorization code")
	}
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging code: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("provider returned no access token")
	}
	return tok.AccessToken, nil
}

// NewState returns a random URL-safe OAuth state value.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CheckState compares the callback state with the stored one in constant time.
func CheckState(stored, got string) error {
	if stored == "" || got == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(got)) != 1 {
		return ErrStateMismatch
	}
	return nil
}
