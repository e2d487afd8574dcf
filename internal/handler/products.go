// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/lensfolio/folio-admin/internal/fetch"
	"github.com/lensfolio/folio-admin/internal/middleware"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/render"
	"github.com/lensfolio/folio-admin/internal/service"
	"github.com/lensfolio/folio-admin/internal/session"
	"github.com/lensfolio/folio-admin/internal/staging"
)

// Form actions posted by the add and edit forms.
const (
	actionAdd          = "add"
	actionRemovePrefix = "remove:"
	actionClear        = "clear"
	actionSubmit       = "submit"
)

// formFieldImages is the multipart field carrying picked or dropped files.
const formFieldImages = "images"

// multipartMemory is how much of a form is buffered before spilling to disk.
const multipartMemory = 8 << 20

// ProductsHandler handles the product list, delete confirmation, and the
// add and edit forms.
type ProductsHandler struct {
	renderer  *render.Renderer
	products  *service.ProductService
	snapshots *session.Snapshots
	drafts    *session.Drafts
	staging   *staging.Store
	events    *service.EventService
}

// ProductsHandlerConfig wires a ProductsHandler.
type ProductsHandlerConfig struct {
	Renderer       *render.Renderer
	Products       *service.ProductService
	SessionManager *scs.SessionManager
	Staging        *staging.Store
	Events         *service.EventService
}

// NewProductsHandler creates a new ProductsHandler.
func NewProductsHandler(cfg ProductsHandlerConfig) *ProductsHandler {
	return &ProductsHandler{
		renderer:  cfg.Renderer,
		products:  cfg.Products,
		snapshots: session.NewSnapshots(cfg.SessionManager),
		drafts:    session.NewDrafts(cfg.SessionManager),
		staging:   cfg.Staging,
		events:    cfg.Events,
	}
}

// ProductFormData holds data for the add and edit form template.
type ProductFormData struct {
	Editing     bool
	Action      string // form post URL
	StagedURL   string // prefix of staged thumbnail URLs
	ProductID   string
	PostID      string // backend's public productId, shown read-only
	Fields      model.ProductInput
	Existing    []model.Image
	Pending     []staging.File
	FileErrors  []string
	Missing     map[string]bool
	MaxFileSize int64
	SubmitLabel string
	BusyLabel   string
}

// ProductDeleteData holds data for the delete confirmation page.
type ProductDeleteData struct {
	Product model.Product
	Action  string
}

// productForm identifies one of the two forms and its pending upload set.
type productForm struct {
	mode    service.Mode
	key     string // draft key, "new" or "edit:<id>"
	url     string
	product model.Product
}

func newForm() productForm {
	return productForm{mode: service.ModeCreate, key: "new", url: RouteNewProduct}
}

func editForm(p model.Product) productForm {
	return productForm{
		mode:    service.ModeUpdate,
		key:     "edit:" + p.ID,
		url:     productURL(p.ID, "edit"),
		product: p,
	}
}

func productURL(id, action string) string {
	return RouteProducts + "/" + id + "/" + action
}

// List handles GET /products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	// The backend serves the list without authentication.
	state := fetch.Run(r.Context(), func(ctx context.Context) ([]model.Product, error) {
		return h.products.List(ctx, "")
	})

	data := render.TemplateData{
		Title: "All Blog Posts",
		Data:  &state,
	}

	switch {
	case state.IsLoaded():
		if err := h.snapshots.Save(r.Context(), state.Data); err != nil {
			slog.Error("failed to save product snapshot", "error", err)
		}
	case state.IsFailed():
		slog.Warn("failed to fetch products",
			"category", model.EventCategoryProduct,
			"actor", middleware.GetActorEmail(r),
			"error", state.Err,
		)
		data.Flash = MsgFetchProducts
		data.FlashType = render.FlashError
	}

	renderPage(w, r, h.renderer, http.StatusOK, TmplProducts, data)
}

// ConfirmDelete handles GET /products/{id}/delete. Nothing is sent to the
// backend until the admin confirms.
func (h *ProductsHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.snapshots.Lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		http.Redirect(w, r, RouteProducts, http.StatusSeeOther)
		return
	}

	renderPage(w, r, h.renderer, http.StatusOK, TmplProductDelete, render.TemplateData{
		Title: "Delete Post",
		Data: ProductDeleteData{
			Product: p,
			Action:  productURL(p.ID, "delete"),
		},
	})
}

// Delete handles POST /products/{id}/delete.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.products.Delete(ctx, middleware.GetToken(r), id); err != nil {
		slog.Warn("failed to delete product",
			"category", model.EventCategoryProduct,
			"actor", middleware.GetActorEmail(r),
			"product_id", id,
			"error", err,
		)
		flashError(w, r, h.renderer, RouteProducts, MsgDeleteFailed)
		return
	}

	h.drafts.Unbind(ctx, editForm(model.Product{ID: id}).key)
	h.logProductEvent(r, "Product deleted", map[string]any{"product_id": id})
	flashSuccess(w, r, h.renderer, RouteProducts, MsgPostDeleted)
}

// NewForm handles GET /products/new.
func (h *ProductsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	form := newForm()
	h.renderForm(w, r, http.StatusOK, form, h.formData(r.Context(), form, model.ProductInput{}))
}

// Create handles POST /products/new.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.handleForm(w, r, newForm())
}

// EditForm handles GET /products/{id}/edit. The form starts from the
// snapshot the list page stored; without one the admin goes back to the list.
func (h *ProductsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	p, ok := h.snapshots.Lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		http.Redirect(w, r, RouteProducts, http.StatusSeeOther)
		return
	}

	form := editForm(p)
	fields := model.ProductInput{
		PostName:    p.PostName,
		Description: p.Description,
		FBLink:      p.FBLink,
	}
	h.renderForm(w, r, http.StatusOK, form, h.formData(r.Context(), form, fields))
}

// Update handles POST /products/{id}/edit.
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.snapshots.Lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		http.Redirect(w, r, RouteProducts, http.StatusSeeOther)
		return
	}
	h.handleForm(w, r, editForm(p))
}

// StagedThumbnail serves the preview of a pending file. The set is looked up
// through the current session, so other sessions' uploads are unreachable.
func (h *ProductsHandler) StagedThumbnail(w http.ResponseWriter, r *http.Request) {
	form := newForm()
	if id := chi.URLParam(r, "id"); id != "" {
		form = editForm(model.Product{ID: id})
	}

	set, err := h.openSet(r.Context(), form, false)
	if err != nil || set == nil {
		http.NotFound(w, r)
		return
	}
	path, err := set.ThumbnailPath(chi.URLParam(r, "file"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeFile(w, r, path)
}

// handleForm runs one post of the add or edit form.
func (h *ProductsHandler) handleForm(w http.ResponseWriter, r *http.Request, form productForm) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		slog.Info("invalid product form", "error", err)
		flashError(w, r, h.renderer, form.url, MsgInvalidForm)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fields := model.ProductInput{
		PostName:    r.FormValue("postName"),
		Description: r.FormValue("description"),
		FBLink:      r.FormValue("fbLink"),
	}
	action := r.FormValue("action")
	uploads := r.MultipartForm.File[formFieldImages]

	set, err := h.openSet(ctx, form, len(uploads) > 0)
	if err != nil {
		slog.Error("failed to open upload set", "form", form.key, "error", err)
		h.renderFormError(w, r, form, fields, nil, somethingWrong(form.mode))
		return
	}

	fileErrors := stageUploads(set, uploads)

	switch {
	case action == actionAdd:
	case strings.HasPrefix(action, actionRemovePrefix):
		if set != nil {
			if err := set.Remove(strings.TrimPrefix(action, actionRemovePrefix)); err != nil && !errors.Is(err, staging.ErrFileNotFound) {
				slog.Error("failed to remove staged file", "set", set.ID(), "error", err)
			}
		}
	case action == actionClear:
		if set != nil {
			if err := set.Clear(); err != nil {
				slog.Error("failed to clear upload set", "set", set.ID(), "error", err)
			}
		}
	default:
		h.submit(w, r, form, fields, set, fileErrors)
		return
	}

	data := h.formData(ctx, form, fields)
	data.FileErrors = fileErrors
	h.renderForm(w, r, http.StatusOK, form, data)
}

func (h *ProductsHandler) submit(w http.ResponseWriter, r *http.Request, form productForm, fields model.ProductInput, set *staging.Set, fileErrors []string) {
	ctx := r.Context()

	_, err := h.products.Submit(ctx, service.SubmitRequest{
		Mode:      form.mode,
		Token:     middleware.GetToken(r),
		ProductID: form.product.ID,
		Fields:    fields,
		Existing:  form.product.Images,
		Pending:   set,
	})

	var (
		verr *service.ValidationError
		rerr *service.RejectedError
	)
	switch {
	case err == nil:
		h.drafts.Unbind(ctx, form.key)
		if form.mode == service.ModeUpdate {
			h.logProductEvent(r, "Product updated", map[string]any{"product_id": form.product.ID, "post_name": fields.PostName})
			flashSuccess(w, r, h.renderer, RouteProducts, MsgPostUpdated)
		} else {
			h.logProductEvent(r, "Product created", map[string]any{"post_name": fields.PostName})
			flashSuccess(w, r, h.renderer, RouteProducts, MsgPostCreated)
		}
	case errors.As(err, &verr):
		h.renderFormError(w, r, form, fields, verr, MsgFormIncomplete, fileErrors...)
	case errors.Is(err, service.ErrUploadFailed):
		slog.Warn("image upload rejected", "category", model.EventCategoryProduct, "actor", middleware.GetActorEmail(r))
		h.renderFormError(w, r, form, fields, nil, MsgUploadFailed, fileErrors...)
	case errors.As(err, &rerr):
		slog.Warn("product mutation rejected",
			"category", model.EventCategoryProduct,
			"actor", middleware.GetActorEmail(r),
			"error", err,
		)
		h.renderFormError(w, r, form, fields, nil, rejectedMessage(rerr), fileErrors...)
	default:
		slog.Error("product submit failed",
			"category", model.EventCategoryProduct,
			"actor", middleware.GetActorEmail(r),
			"form", form.key,
			"error", err,
		)
		h.renderFormError(w, r, form, fields, nil, somethingWrong(form.mode), fileErrors...)
	}
}

func (h *ProductsHandler) renderFormError(w http.ResponseWriter, r *http.Request, form productForm, fields model.ProductInput,
	verr *service.ValidationError, msg string, fileErrors ...string) {
	data := h.formData(r.Context(), form, fields)
	data.FileErrors = fileErrors
	status := http.StatusOK
	if verr != nil {
		status = http.StatusUnprocessableEntity
		for _, f := range verr.Missing {
			data.Missing[f] = true
		}
		data.Missing[formFieldImages] = verr.NoImages
	}
	h.renderFormFlash(w, r, status, form, data, msg)
}

func (h *ProductsHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, form productForm, data ProductFormData) {
	h.renderFormFlash(w, r, status, form, data, "")
}

func (h *ProductsHandler) renderFormFlash(w http.ResponseWriter, r *http.Request, status int, form productForm, data ProductFormData, msg string) {
	title := "Add Blog"
	if form.mode == service.ModeUpdate {
		title = "Edit Blog"
	}
	td := render.TemplateData{Title: title, Data: data}
	if msg != "" {
		td.Flash = msg
		td.FlashType = render.FlashError
	}
	renderPage(w, r, h.renderer, status, TmplProductForm, td)
}

// formData builds the template data, listing whatever is staged for form.
func (h *ProductsHandler) formData(ctx context.Context, form productForm, fields model.ProductInput) ProductFormData {
	data := ProductFormData{
		Action:      form.url,
		StagedURL:   form.url + "/staged/",
		Fields:      fields,
		Missing:     map[string]bool{},
		MaxFileSize: h.staging.MaxFileBytes(),
		SubmitLabel: "List Post",
		BusyLabel:   "Submitting...",
	}
	if form.mode == service.ModeUpdate {
		data.Editing = true
		data.ProductID = form.product.ID
		data.PostID = form.product.ProductID
		data.Existing = form.product.Images
		data.SubmitLabel = "Update Post"
		data.BusyLabel = "Updating..."
	}

	set, err := h.openSet(ctx, form, false)
	if err != nil {
		slog.Error("failed to open upload set", "form", form.key, "error", err)
		return data
	}
	if set != nil {
		files, err := set.Files()
		if err != nil {
			slog.Error("failed to list staged files", "set", set.ID(), "error", err)
		}
		data.Pending = files
	}
	return data
}

// openSet returns the upload set bound to form. With create false a missing
// set yields nil; with create true a new set is made and bound.
func (h *ProductsHandler) openSet(ctx context.Context, form productForm, create bool) (*staging.Set, error) {
	id := h.drafts.SetID(ctx, form.key)
	if !create {
		if id == "" {
			return nil, nil
		}
		set, err := h.staging.Open(id)
		if errors.Is(err, staging.ErrSetNotFound) {
			h.drafts.Unbind(ctx, form.key)
			return nil, nil
		}
		return set, err
	}

	set, err := h.staging.OpenOrCreate(id)
	if err != nil {
		return nil, err
	}
	if set.ID() != id {
		h.drafts.Bind(ctx, form.key, set.ID())
	}
	return set, nil
}

// stageUploads adds every uploaded file to set and returns a message per
// file that was refused.
func stageUploads(set *staging.Set, uploads []*multipart.FileHeader) []string {
	var messages []string
	for _, fh := range uploads {
		if err := stageUpload(set, fh); err != nil {
			var ferr *staging.FileError
			if !errors.As(err, &ferr) {
				slog.Error("failed to stage upload", "file", fh.Filename, "error", err)
				messages = append(messages, fh.Filename+": could not be added")
				continue
			}
			messages = append(messages, ferr.Error())
		}
	}
	return messages
}

func stageUpload(set *staging.Set, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = set.Add(fh.Filename, f)
	return err
}

func (h *ProductsHandler) maxRequestBytes() int64 {
	return h.staging.MaxFileBytes()*staging.DefaultMaxFiles + 1<<20
}

func (h *ProductsHandler) logProductEvent(r *http.Request, message string, md map[string]any) {
	if h.events == nil {
		return
	}
	_ = h.events.LogProductEvent(r.Context(), model.EventLevelInfo, message, middleware.GetActorEmail(r), clientAddr(r), md)
}

func rejectedMessage(err *service.RejectedError) string {
	if err.Mode == service.ModeUpdate {
		if err.Message != "" {
			return err.Message
		}
		return MsgUpdateFailed
	}
	return MsgCreateFailed
}

func somethingWrong(mode service.Mode) string {
	if mode == service.ModeUpdate {
		return MsgUpdateWentWrong
	}
	return MsgSomethingWrong
}
