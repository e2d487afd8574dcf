// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/lensfolio/folio-admin/internal/auth"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/session"
)

type fakeDirectory struct {
	user  *model.User
	err   error
	calls int
}

func (f *fakeDirectory) Me(context.Context, string) (*model.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	return &u, nil
}

type shellResult struct {
	rec       *httptest.ResponseRecorder
	reached   bool
	identity  *model.User
	token     string
	flashes   []string
	tokenLeft string
}

// runShell sends one request through AdminShell with token preloaded in the session.
func runShell(t *testing.T, dir *fakeDirectory, token string) shellResult {
	t.Helper()

	sm := scs.New()
	tokens := session.NewTokens(sm)
	var res shellResult

	cfg := AdminShellConfig{
		Tokens:     tokens,
		Identities: auth.NewIdentities(dir, nil, 0),
		Flash: func(r *http.Request, message, flashType string) {
			if flashType != "error" {
				t.Errorf("flash type = %q, want error", flashType)
			}
			res.flashes = append(res.flashes, message)
		},
	}

	protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res.reached = true
		res.identity = GetIdentity(r)
		res.token = GetToken(r)
		w.WriteHeader(http.StatusOK)
	})
	shell := AdminShell(cfg)(protected)

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			sm.Put(r.Context(), session.KeyToken, token)
		}
		shell.ServeHTTP(w, r)
		res.tokenLeft = tokens.Token(r.Context())
	}))

	res.rec = httptest.NewRecorder()
	handler.ServeHTTP(res.rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	return res
}

func TestAdminShell_NoTokenRedirectsWithoutNetworkCall(t *testing.T) {
	dir := &fakeDirectory{user: &model.User{Role: model.RoleAdmin}}

	res := runShell(t, dir, "")

	if res.rec.Code != http.StatusSeeOther || res.rec.Header().Get("Location") != "/login" {
		t.Errorf("got %d to %q, want 303 to /login", res.rec.Code, res.rec.Header().Get("Location"))
	}
	if dir.calls != 0 {
		t.Errorf("identity endpoint called %d times, want 0", dir.calls)
	}
	if res.reached {
		t.Error("protected handler must not run")
	}
	if len(res.flashes) != 0 {
		t.Errorf("flashes = %v, want none", res.flashes)
	}
}

func TestAdminShell_AdminReachesRoute(t *testing.T) {
	dir := &fakeDirectory{user: &model.User{ID: "u1", Email: "ada@example.com", Role: model.RoleAdmin}}

	res := runShell(t, dir, "tok")

	if !res.reached || res.rec.Code != http.StatusOK {
		t.Fatalf("admin should reach the route, got %d", res.rec.Code)
	}
	if res.identity == nil || res.identity.Email != "ada@example.com" {
		t.Errorf("identity = %+v", res.identity)
	}
	if res.token != "tok" {
		t.Errorf("token in context = %q", res.token)
	}
}

func TestAdminShell_NonAdminIsTurnedAway(t *testing.T) {
	dir := &fakeDirectory{user: &model.User{Email: "bob@example.com", Role: "user"}}

	res := runShell(t, dir, "tok")

	if res.reached {
		t.Fatal("non-admin must never reach protected routes")
	}
	if res.rec.Header().Get("Location") != "/login" {
		t.Errorf("Location = %q", res.rec.Header().Get("Location"))
	}
	if len(res.flashes) != 1 || res.flashes[0] != MsgUnauthorized {
		t.Errorf("flashes = %v", res.flashes)
	}
	if res.tokenLeft != "" {
		t.Error("session token should be cleared")
	}
}

func TestAdminShell_IdentityFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}

	res := runShell(t, dir, "tok")

	if res.reached {
		t.Fatal("route must not run when identity fails")
	}
	if res.rec.Header().Get("Location") != "/login" {
		t.Errorf("Location = %q", res.rec.Header().Get("Location"))
	}
	if len(res.flashes) != 1 || res.flashes[0] != MsgFetchUserFailed {
		t.Errorf("flashes = %v", res.flashes)
	}
}

func TestGetIdentity_OutsideShell(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetIdentity(r) != nil || GetActorEmail(r) != "" || GetToken(r) != "" {
		t.Error("context helpers should be empty outside the shell")
	}
}

func TestRequestPath(t *testing.T) {
	var got string
	h := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestPath(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/customers?x=1", nil))
	if got != "/customers" {
		t.Errorf("GetRequestPath = %q", got)
	}
	if GetRequestPath(context.Background()) != "" {
		t.Error("empty context should yield empty path")
	}
}
