// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for the admin shell,
// request hardening, and request context handling.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lensfolio/folio-admin/internal/auth"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyIdentity    ContextKey = "identity"
	ContextKeyToken       ContextKey = "token"
	ContextKeyRequestPath ContextKey = "request_path"
)

// Flash messages shown when the shell turns a visitor away.
const (
	MsgFetchUserFailed = "Failed to fetch user data"
	MsgUnauthorized    = "Unauthorized access"
)

// FlashFunc stores a one-shot message for the next rendered page.
type FlashFunc func(r *http.Request, message, flashType string)

// AdminShellConfig wires the session bootstrap.
type AdminShellConfig struct {
	Tokens     *session.Tokens
	Identities *auth.Identities
	Flash      FlashFunc
}

// AdminShell gates every protected route. A visitor without a token is sent
// to /login before any backend call. Otherwise the token is resolved against
// the identity endpoint, and only admins reach the wrapped handler.
func AdminShell(cfg AdminShellConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := cfg.Tokens.Token(ctx)
			if token == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			user, err := cfg.Identities.ResolveAdmin(ctx, token)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrNotAdmin):
				// Mirrored into the activity log by the event log handler.
				slog.Warn("access denied: not an admin",
					"category", model.EventCategoryAuth,
					"actor", user.Email,
					"role", user.Role,
					"path", r.URL.Path,
				)
				cfg.Identities.Forget(ctx, token)
				if err := cfg.Tokens.Clear(ctx); err != nil {
					slog.Error("failed to clear session token", "error", err)
				}
				cfg.flash(r, MsgUnauthorized)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			default:
				slog.Info("identity check failed", "error", err, "path", r.URL.Path)
				cfg.flash(r, MsgFetchUserFailed)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyIdentity, *user)
			ctx = context.WithValue(ctx, ContextKeyToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (cfg AdminShellConfig) flash(r *http.Request, msg string) {
	if cfg.Flash != nil {
		cfg.Flash(r, msg, "error")
	}
}

// GetIdentity retrieves the signed-in admin from the request context.
// Returns nil outside the admin shell.
func GetIdentity(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyIdentity).(model.User)
	if !ok {
		return nil
	}
	return &user
}

// GetActorEmail returns the signed-in admin's email, or "".
func GetActorEmail(r *http.Request) string {
	if u := GetIdentity(r); u != nil {
		return u.Email
	}
	return ""
}

// GetToken returns the bearer token the shell validated for this request.
func GetToken(r *http.Request) string {
	token, _ := r.Context().Value(ContextKeyToken).(string)
	return token
}

// RequestPath creates middleware that stores the request path in the context.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}
