package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lensfolio/folio-admin/internal/middleware"
)

// Handlers groups the console's route handlers.
type Handlers struct {
	Auth     *AuthHandler
	Admin    *AdminHandler
	Products *ProductsHandler
	Users    *UsersHandler
	Events   *EventsHandler
	Health   *HealthHandler
}

// RouteMiddleware is applied per route group. Nil entries are skipped.
type RouteMiddleware struct {
	Shell     func(http.Handler) http.Handler // admin identity gate
	AuthLimit func(http.Handler) http.Handler // per-IP limit on sign-in routes
	CSRF      func(http.Handler) http.Handler
}

func use(r chi.Router, mws ...func(http.Handler) http.Handler) {
	for _, mw := range mws {
		if mw != nil {
			r.Use(mw)
		}
	}
}

// RegisterRoutes mounts every console route on r.
func RegisterRoutes(r chi.Router, hs Handlers, mw RouteMiddleware) {
	r.Get("/health", hs.Health.Health)
	r.Get("/health/live", hs.Health.Liveness)
	r.Get("/health/ready", hs.Health.Readiness)

	// Sign-in routes
	r.Group(func(r chi.Router) {
		use(r, mw.AuthLimit, mw.CSRF, middleware.NoStore)
		r.Get(RouteLogin, hs.Auth.LoginForm)
		r.Get(RouteRegister, hs.Auth.RegisterForm)
		r.Get("/auth/google", hs.Auth.GoogleStart)
		r.Get("/auth/google/callback", hs.Auth.GoogleCallback)
		r.Post("/logout", hs.Auth.Logout)
	})

	// Admin shell
	r.Group(func(r chi.Router) {
		use(r, mw.CSRF, mw.Shell, middleware.NoStore)

		r.Get(RouteRoot, hs.Admin.Dashboard)

		r.Get(RouteProducts, hs.Products.List)
		r.Get(RouteNewProduct, hs.Products.NewForm)
		r.Post(RouteNewProduct, hs.Products.Create)
		r.Get(RouteNewProduct+"/staged/{file}", hs.Products.StagedThumbnail)
		r.Route(RouteProducts+"/{id}", func(r chi.Router) {
			r.Get("/edit", hs.Products.EditForm)
			r.Post("/edit", hs.Products.Update)
			r.Get("/edit/staged/{file}", hs.Products.StagedThumbnail)
			r.Get("/delete", hs.Products.ConfirmDelete)
			r.Post("/delete", hs.Products.Delete)
		})

		r.Get("/customers", hs.Users.List)
		r.Get("/events", hs.Events.List)
	})

	// Unknown paths render the shell's 404 page, so they require sign-in too.
	notFound := http.Handler(http.HandlerFunc(hs.Admin.NotFound))
	if mw.Shell != nil {
		notFound = mw.Shell(notFound)
	}
	r.NotFound(notFound.ServeHTTP)
}
