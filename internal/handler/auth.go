// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/lensfolio/folio-admin/internal/auth"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/render"
	"github.com/lensfolio/folio-admin/internal/service"
	"github.com/lensfolio/folio-admin/internal/session"
)

// GoogleAuthenticator trades a Google access token for a backend session.
type GoogleAuthenticator interface {
	GoogleAuth(ctx context.Context, accessToken string) (*model.GoogleAuthResult, error)
}

// AuthHandler handles the login, register and logout routes.
type AuthHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	tokens         *session.Tokens
	identities     *auth.Identities
	oauth          auth.CodeExchanger
	backend        GoogleAuthenticator
	eventService   *service.EventService
	registerDelay  time.Duration
}

// AuthHandlerConfig wires an AuthHandler.
type AuthHandlerConfig struct {
	Renderer       *render.Renderer
	SessionManager *scs.SessionManager
	Identities     *auth.Identities
	OAuth          auth.CodeExchanger
	Backend        GoogleAuthenticator
	Events         *service.EventService
	RegisterDelay  time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		renderer:       cfg.Renderer,
		sessionManager: cfg.SessionManager,
		tokens:         session.NewTokens(cfg.SessionManager),
		identities:     cfg.Identities,
		oauth:          cfg.OAuth,
		backend:        cfg.Backend,
		eventService:   cfg.Events,
		registerDelay:  cfg.RegisterDelay,
	}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, TmplLogin, render.TemplateData{
		Title: "Login",
		Data:  map[string]any{"Intent": auth.IntentLogin},
	})
}

// RegisterForm renders the register page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, TmplRegister, render.TemplateData{
		Title: "Register",
		Data:  map[string]any{"Intent": auth.IntentRegister},
	})
}

// GoogleStart handles GET /auth/google. It remembers the intent and a fresh
// state value in the session and sends the browser to the consent page.
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	intent := r.URL.Query().Get("intent")
	if !auth.ValidIntent(intent) {
		intent = auth.IntentLogin
	}

	state, err := auth.NewState()
	if err != nil {
		slog.Error("failed to create oauth state", "error", err)
		flashError(w, r, h.renderer, intentScreen(intent), intentFailure(intent))
		return
	}

	h.sessionManager.Put(r.Context(), session.KeyOAuthState, state)
	h.sessionManager.Put(r.Context(), session.KeyOAuthIntent, intent)

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// State and intent are single use.
	stored := h.sessionManager.PopString(ctx, session.KeyOAuthState)
	intent := h.sessionManager.PopString(ctx, session.KeyOAuthIntent)
	if !auth.ValidIntent(intent) {
		intent = auth.IntentLogin
	}
	screen, failure := intentScreen(intent), intentFailure(intent)

	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		slog.Info("google sign-in aborted", "intent", intent, "error", providerErr)
		flashError(w, r, h.renderer, screen, failure)
		return
	}
	if err := auth.CheckState(stored, q.Get("state")); err != nil {
		slog.Warn("google callback rejected", "category", model.EventCategoryAuth, "intent", intent, "error", err)
		flashError(w, r, h.renderer, screen, failure)
		return
	}

	accessToken, err := h.oauth.Exchange(ctx, q.Get("code"))
	if err != nil {
		slog.Error("google code exchange failed", "category", model.EventCategoryAuth, "intent", intent, "error", err)
		flashError(w, r, h.renderer, screen, failure)
		return
	}

	result, err := h.backend.GoogleAuth(ctx, accessToken)
	if err != nil {
		slog.Error("backend google auth failed", "category", model.EventCategoryAuth, "intent", intent, "error", err)
		flashError(w, r, h.renderer, screen, failure)
		return
	}

	if intent == auth.IntentRegister {
		h.finishRegister(w, r, result)
		return
	}
	h.finishLogin(w, r, result)
}

func (h *AuthHandler) finishLogin(w http.ResponseWriter, r *http.Request, result *model.GoogleAuthResult) {
	if result.Created() {
		flashSuccess(w, r, h.renderer, RouteLogin, MsgAccountCreatedLogin)
		return
	}

	ctx := r.Context()
	if err := h.tokens.SetToken(ctx, result.Token); err != nil {
		slog.Error("failed to store session token", "error", err)
		flashError(w, r, h.renderer, RouteLogin, MsgLoginFailed)
		return
	}

	if h.eventService != nil {
		md := service.ClientMetadata(r.UserAgent())
		md["role"] = result.User.Role
		_ = h.eventService.LogAuthEvent(ctx, model.EventLevelInfo, "Signed in with Google", result.User.Email, clientAddr(r), md)
	}

	http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
}

func (h *AuthHandler) finishRegister(w http.ResponseWriter, r *http.Request, result *model.GoogleAuthResult) {
	if !result.Created() {
		msg := result.Message
		if msg == "" {
			msg = MsgRegistrationRejected
		}
		flashError(w, r, h.renderer, RouteRegister, msg)
		return
	}

	if h.eventService != nil {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "Account registered with Google", "", clientAddr(r),
			service.ClientMetadata(r.UserAgent()))
	}

	renderPage(w, r, h.renderer, http.StatusOK, TmplRegisterSuccess, render.TemplateData{
		Title:     "Register",
		Flash:     MsgAccountCreated,
		FlashType: render.FlashSuccess,
		Data: map[string]any{
			"RedirectURL":    RouteLogin,
			"DelayMillis":    h.registerDelay.Milliseconds(),
			"RefreshSeconds": refreshSeconds(h.registerDelay),
		},
	})
}

// Logout handles POST /logout. It works without a resolvable identity so a
// broken backend never traps the admin in a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := h.tokens.Token(ctx)
	if token != "" {
		h.identities.Forget(ctx, token)
		if h.eventService != nil {
			_ = h.eventService.LogAuthEvent(ctx, model.EventLevelInfo, "Signed out", "", clientAddr(r), nil)
		}
	}

	if err := h.tokens.Clear(ctx); err != nil {
		slog.Error("failed to clear session", "error", err)
	}

	flashSuccess(w, r, h.renderer, RouteLogin, MsgLoggedOut)
}

func intentScreen(intent string) string {
	if intent == auth.IntentRegister {
		return RouteRegister
	}
	return RouteLogin
}

func intentFailure(intent string) string {
	if intent == auth.IntentRegister {
		return MsgRegisterFailed
	}
	return MsgLoginFailed
}

// refreshSeconds rounds d up to whole seconds for the meta refresh fallback.
func refreshSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
