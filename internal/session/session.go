// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the scs session manager and exposes typed
// accessors for the values the console keeps per browser: the backend
// token, product snapshots handed from the list to the edit form, and the
// ids of pending upload sets.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/lensfolio/folio-admin/internal/model"
)

// Session keys.
const (
	KeyToken       = "auth_token"
	KeySnapshots   = "product_snapshots"
	KeyDraftPrefix = "draft:"
	KeyOAuthState  = "oauth_state"
	KeyOAuthIntent = "oauth_intent"
)

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 24 * time.Hour
	sm.IdleTimeout = 8 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// Tokens stores the backend bearer token for the current browser session.
// The zero state (no token) means "signed out".
type Tokens struct {
	sm *scs.SessionManager
}

// NewTokens returns a Tokens bound to sm.
func NewTokens(sm *scs.SessionManager) *Tokens {
	return &Tokens{sm: sm}
}

// Token returns the stored token or an empty string.
func (t *Tokens) Token(ctx context.Context) string {
	return t.sm.GetString(ctx, KeyToken)
}

// SetToken stores token after renewing the session id.
func (t *Tokens) SetToken(ctx context.Context, token string) error {
	if err := t.sm.RenewToken(ctx); err != nil {
		return err
	}
	t.sm.Put(ctx, KeyToken, token)
	return nil
}

// Clear removes the token and everything derived from it.
func (t *Tokens) Clear(ctx context.Context) error {
	t.sm.Remove(ctx, KeyToken)
	t.sm.Remove(ctx, KeySnapshots)
	return t.sm.RenewToken(ctx)
}

// Snapshots keeps the last product list shown to the admin, keyed by id.
// The edit form reads its initial values from here instead of re-fetching.
type Snapshots struct {
	sm *scs.SessionManager
}

// NewSnapshots returns a Snapshots bound to sm.
func NewSnapshots(sm *scs.SessionManager) *Snapshots {
	return &Snapshots{sm: sm}
}

// Save replaces the stored snapshot with products.
func (s *Snapshots) Save(ctx context.Context, products []model.Product) error {
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		if p.ID != "" {
			byID[p.ID] = p
		}
	}
	b, err := json.Marshal(byID)
	if err != nil {
		return err
	}
	s.sm.Put(ctx, KeySnapshots, string(b))
	return nil
}

// Lookup returns the snapshot of product id.
func (s *Snapshots) Lookup(ctx context.Context, id string) (model.Product, bool) {
	raw := s.sm.GetString(ctx, KeySnapshots)
	if raw == "" {
		return model.Product{}, false
	}
	var byID map[string]model.Product
	if err := json.Unmarshal([]byte(raw), &byID); err != nil {
		return model.Product{}, false
	}
	p, ok := byID[id]
	return p, ok
}

// Drafts maps a form (e.g. "new" or "edit:<id>") to its pending upload set id.
type Drafts struct {
	sm *scs.SessionManager
}

// NewDrafts returns a Drafts bound to sm.
func NewDrafts(sm *scs.SessionManager) *Drafts {
	return &Drafts{sm: sm}
}

// SetID returns the upload set id of form, or "".
func (d *Drafts) SetID(ctx context.Context, form string) string {
	return d.sm.GetString(ctx, KeyDraftPrefix+form)
}

// Bind records the upload set id of form.
func (d *Drafts) Bind(ctx context.Context, form, setID string) {
	d.sm.Put(ctx, KeyDraftPrefix+form, setID)
}

// Unbind forgets the upload set of form.
func (d *Drafts) Unbind(ctx context.Context, form string) {
	d.sm.Remove(ctx, KeyDraftPrefix+form)
}
