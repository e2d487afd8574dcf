package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lensfolio/folio-admin/internal/fetch"
	"github.com/lensfolio/folio-admin/internal/middleware"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/render"
)

// UserLister fetches the backend's user accounts.
type UserLister interface {
	ListUsers(ctx context.Context, token string) ([]model.User, error)
}

// UsersHandler handles the customers page.
type UsersHandler struct {
	renderer  *render.Renderer
	lister    UserLister
	sendToken bool
}

// NewUsersHandler creates a new UsersHandler. With sendToken false the list
// is requested without the admin's bearer token.
func NewUsersHandler(renderer *render.Renderer, lister UserLister, sendToken bool) *UsersHandler {
	return &UsersHandler{
		renderer:  renderer,
		lister:    lister,
		sendToken: sendToken,
	}
}

// List handles GET /customers.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	token := ""
	if h.sendToken {
		token = middleware.GetToken(r)
	}

	state := fetch.Run(r.Context(), func(ctx context.Context) ([]model.User, error) {
		return h.lister.ListUsers(ctx, token)
	})

	data := render.TemplateData{
		Title: "Customers",
		Data:  &state,
	}
	if state.IsFailed() {
		slog.Warn("failed to fetch users",
			"category", model.EventCategoryUser,
			"actor", middleware.GetActorEmail(r),
			"error", state.Err,
		)
		data.Flash = MsgFetchUsers
		data.FlashType = render.FlashError
	}

	renderPage(w, r, h.renderer, http.StatusOK, TmplCustomers, data)
}
