// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/lensfolio/folio-admin/internal/middleware"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/render"
	"github.com/lensfolio/folio-admin/internal/service"
)

// AdminHandler handles the dashboard and the shell's fallback pages.
type AdminHandler struct {
	renderer *render.Renderer
	source   service.DashboardSource
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(renderer *render.Renderer, source service.DashboardSource) *AdminHandler {
	return &AdminHandler{
		renderer: renderer,
		source:   source,
	}
}

// Dashboard handles GET /.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash := service.LoadDashboard(r.Context(), h.source, middleware.GetToken(r))

	data := render.TemplateData{
		Title: "Dashboard",
		Data:  dash,
	}
	if dash.Failed() {
		slog.Warn("dashboard data incomplete",
			"category", model.EventCategorySystem,
			"actor", middleware.GetActorEmail(r),
			"products_error", errString(dash.Products.Err),
			"users_error", errString(dash.Users.Err),
		)
		data.Flash = MsgFetchDashboard
		data.FlashType = render.FlashError
	}

	renderPage(w, r, h.renderer, http.StatusOK, TmplDashboard, data)
}

// NotFound renders the in-shell 404 page for unknown admin routes.
func (h *AdminHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusNotFound, TmplNotFound, render.TemplateData{
		Title: "404 Not Found",
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
