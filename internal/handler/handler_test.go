// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/lensfolio/folio-admin/internal/auth"
	"github.com/lensfolio/folio-admin/internal/middleware"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/portfolio"
	"github.com/lensfolio/folio-admin/internal/render"
	"github.com/lensfolio/folio-admin/internal/service"
	"github.com/lensfolio/folio-admin/internal/session"
	"github.com/lensfolio/folio-admin/internal/staging"
	"github.com/lensfolio/folio-admin/internal/store"
	"github.com/lensfolio/folio-admin/web"
)

const testToken = "backend-token"

var testAdmin = model.User{
	ID:        "u1",
	FirstName: "Ada",
	LastName:  "Lovelace",
	Email:     "ada@example.com",
	Role:      model.RoleAdmin,
}

// fakeBackend stands in for the portfolio client.
type fakeBackend struct {
	mu sync.Mutex

	me    *model.User
	meErr error

	products    []model.Product
	productsErr error

	users       []model.User
	usersErr    error
	usersTokens []string

	google    *model.GoogleAuthResult
	googleErr error

	upload       *model.UploadResult
	uploadErr    error
	uploadedSets [][]string

	mutation *model.MutationResult
	created  []model.ProductInput
	updated  []model.ProductInput
	updateID []string

	deleteErr error
	deleted   []string
	delTokens []string

	pingErr error
	calls   int
}

func newFakeBackend() *fakeBackend {
	admin := testAdmin
	return &fakeBackend{
		me:       &admin,
		google:   &model.GoogleAuthResult{Token: testToken, User: &admin},
		upload:   &model.UploadResult{Success: true, Images: []model.Image{{URL: "https://img.example/new.jpg", PublicID: "new"}}},
		mutation: &model.MutationResult{Success: true, Message: "ok"},
	}
}

func (f *fakeBackend) Me(_ context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	if token != testToken {
		return nil, portfolio.ErrUnauthorized
	}
	u := *f.me
	return &u, nil
}

func (f *fakeBackend) ListProducts(context.Context, string) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.products, f.productsErr
}

func (f *fakeBackend) ListUsers(_ context.Context, token string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.usersTokens = append(f.usersTokens, token)
	return f.users, f.usersErr
}

func (f *fakeBackend) GoogleAuth(context.Context, string) (*model.GoogleAuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.google, f.googleErr
}

func (f *fakeBackend) UploadImages(_ context.Context, files []portfolio.File) (*model.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var names []string
	for _, file := range files {
		if _, err := io.Copy(io.Discard, file.Body); err != nil {
			return nil, err
		}
		names = append(names, file.Name)
	}
	f.uploadedSets = append(f.uploadedSets, names)
	return f.upload, f.uploadErr
}

func (f *fakeBackend) CreateProduct(_ context.Context, in model.ProductInput) (*model.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.created = append(f.created, in)
	return f.mutation, nil
}

func (f *fakeBackend) UpdateProduct(_ context.Context, _, id string, in model.ProductInput) (*model.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.updated = append(f.updated, in)
	f.updateID = append(f.updateID, id)
	return f.mutation, nil
}

func (f *fakeBackend) DeleteProduct(_ context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.deleted = append(f.deleted, id)
	f.delTokens = append(f.delTokens, token)
	return f.deleteErr
}

func (f *fakeBackend) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeOAuth returns a consent URL carrying the state and trades any code
// except "bad" for an access token.
type fakeOAuth struct{}

func (fakeOAuth) AuthCodeURL(state string) string {
	return "https://accounts.example/consent?state=" + url.QueryEscape(state)
}

func (fakeOAuth) Exchange(_ context.Context, code string) (string, error) {
	if code == "bad" {
		return "", errors.New("invalid_grant")
	}
	return "access-" + code, nil
}

type testApp struct {
	server  *httptest.Server
	client  *http.Client
	backend *fakeBackend
	events  *service.EventService
	staging *staging.Store
}

type testAppOptions struct {
	usersListAuth bool
}

func newTestApp(t *testing.T, opts ...testAppOptions) *testApp {
	t.Helper()
	var opt testAppOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	db, err := store.NewDB(filepath.Join(t.TempDir(), "handler.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	stagingStore, err := staging.NewStore(staging.Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("templates fs: %v", err)
	}
	sm := scs.New()
	renderer, err := render.New(render.Config{TemplatesFS: templatesFS, SessionManager: sm})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	backend := newFakeBackend()
	events := service.NewEventService(db)
	identities := auth.NewIdentities(backend, nil, 0)

	hs := Handlers{
		Auth: NewAuthHandler(AuthHandlerConfig{
			Renderer:       renderer,
			SessionManager: sm,
			Identities:     identities,
			OAuth:          fakeOAuth{},
			Backend:        backend,
			Events:         events,
			RegisterDelay:  1500 * time.Millisecond,
		}),
		Admin: NewAdminHandler(renderer, backend),
		Products: NewProductsHandler(ProductsHandlerConfig{
			Renderer:       renderer,
			Products:       service.NewProductService(backend, nil),
			SessionManager: sm,
			Staging:        stagingStore,
			Events:         events,
		}),
		Users:  NewUsersHandler(renderer, backend, opt.usersListAuth),
		Events: NewEventsHandler(renderer, events),
		Health: NewHealthHandler(db, backend, stagingStore.Root(), "test"),
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(sm.LoadAndSave)
		RegisterRoutes(r, hs, RouteMiddleware{
			Shell: middleware.AdminShell(middleware.AdminShellConfig{
				Tokens:     session.NewTokens(sm),
				Identities: identities,
				Flash:      renderer.SetFlash,
			}),
			CSRF: middleware.CSRF(middleware.DefaultCSRFConfig([]byte("0123456789abcdef0123456789abcdef"), true, "127.0.0.1:0")),
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{server: srv, client: client, backend: backend, events: events, staging: stagingStore}
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (a *testApp) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		header:   resp.Header,
		body:     string(body),
	}
}

func (a *testApp) get(t *testing.T, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return a.do(t, req)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

type upload struct {
	name string
	data []byte
}

// postMultipart sends a product form post the way the browser does.
func (a *testApp) postMultipart(t *testing.T, path string, fields map[string]string, files ...upload) response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(formFieldImages, f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(t, req)
}

// login runs the Google round trip and leaves an admin session in the jar.
func (a *testApp) login(t *testing.T) {
	t.Helper()
	start := a.startGoogle(t, auth.IntentLogin)
	resp := a.get(t, "/auth/google/callback?code=abc&state="+url.QueryEscape(start.state))
	if resp.status != http.StatusSeeOther || resp.location != RouteRoot {
		t.Fatalf("login callback = %d %q, want 303 /", resp.status, resp.location)
	}
}

type startResponse struct {
	response
	state string
}

func (a *testApp) startGoogle(t *testing.T, intent string) startResponse {
	t.Helper()
	resp := a.get(t, "/auth/google?intent="+intent)
	if resp.status != http.StatusFound {
		t.Fatalf("GET /auth/google = %d, want 302", resp.status)
	}
	u, err := url.Parse(resp.location)
	if err != nil {
		t.Fatalf("consent URL: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("consent URL carries no state")
	}
	return startResponse{response: resp, state: state}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q", w)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(body, u) {
			t.Errorf("body unexpectedly contains %q", u)
		}
	}
}
