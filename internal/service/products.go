// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/portfolio"
	"github.com/lensfolio/folio-admin/internal/staging"
)

// ProductAPI is the subset of the portfolio client the product workflows use.
type ProductAPI interface {
	ListProducts(ctx context.Context, token string) ([]model.Product, error)
	UploadImages(ctx context.Context, files []portfolio.File) (*model.UploadResult, error)
	CreateProduct(ctx context.Context, in model.ProductInput) (*model.MutationResult, error)
	UpdateProduct(ctx context.Context, token, id string, in model.ProductInput) (*model.MutationResult, error)
	DeleteProduct(ctx context.Context, token, id string) error
}

// Mode selects between the add and edit forms.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// ErrUploadFailed is returned when the upload endpoint answers success=false.
var ErrUploadFailed = errors.New("image upload failed")

// ValidationError is returned before any request is sent.
type ValidationError struct {
	Missing   []string // empty text fields
	NoImages  bool
	Unwrapped error
}

func (e *ValidationError) Error() string {
	return "please fill all fields and upload at least one image"
}

func (e *ValidationError) Unwrap() error {
	return e.Unwrapped
}

// RejectedError is a create or update the backend answered with success=false.
type RejectedError struct {
	Mode    Mode
	Message string
}

func (e *RejectedError) Error() string {
	op := "create"
	if e.Mode == ModeUpdate {
		op = "update"
	}
	if e.Message == "" {
		return op + " rejected"
	}
	return fmt.Sprintf("%s rejected: %s", op, e.Message)
}

// SubmitRequest is one press of the form's submit button.
type SubmitRequest struct {
	Mode      Mode
	Token     string // bearer for updates
	ProductID string // edit only
	Fields    model.ProductInput
	// Existing is the snapshot's image set, forwarded unchanged when an
	// edit has no new files.
	Existing []model.Image
	// Pending holds the files picked so far; nil means none.
	Pending *staging.Set
}

// ProductService runs the product list, submit and delete workflows.
type ProductService struct {
	api    ProductAPI
	logger *slog.Logger
}

// NewProductService creates a ProductService.
func NewProductService(api ProductAPI, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{api: api, logger: logger}
}

// List fetches all products.
func (s *ProductService) List(ctx context.Context, token string) ([]model.Product, error) {
	return s.api.ListProducts(ctx, token)
}

// Delete sends exactly one authenticated delete for id.
func (s *ProductService) Delete(ctx context.Context, token, id string) error {
	if id == "" {
		return errors.New("product id is required")
	}
	return s.api.DeleteProduct(ctx, token, id)
}

// Submit validates the form, uploads pending files, then creates or updates
// the product. It returns the message the backend sent on success.
func (s *ProductService) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	var pending []staging.File
	if req.Pending != nil {
		files, err := req.Pending.Files()
		if err != nil && !errors.Is(err, staging.ErrSetNotFound) {
			return "", fmt.Errorf("reading pending files: %w", err)
		}
		pending = files
	}

	if err := validate(req, len(pending)); err != nil {
		return "", err
	}

	in := model.ProductInput{
		PostName:    req.Fields.PostName,
		Description: req.Fields.Description,
		FBLink:      req.Fields.FBLink,
		Images:      req.Existing,
	}

	if len(pending) > 0 {
		images, err := s.upload(ctx, req.Pending, pending)
		if err != nil {
			return "", err
		}
		in.Images = images
	}

	var (
		res *model.MutationResult
		err error
	)
	switch req.Mode {
	case ModeUpdate:
		res, err = s.api.UpdateProduct(ctx, req.Token, req.ProductID, in)
	default:
		res, err = s.api.CreateProduct(ctx, in)
	}
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", &RejectedError{Mode: req.Mode, Message: res.Message}
	}

	if req.Pending != nil {
		if err := req.Pending.Discard(); err != nil {
			s.logger.Warn("failed to discard upload set", "set", req.Pending.ID(), "error", err, "category", model.EventCategoryStaging)
		}
	}
	return res.Message, nil
}

func validate(req SubmitRequest, pending int) error {
	verr := &ValidationError{}
	if err := req.Fields.Validate(); err != nil {
		verr.Unwrapped = err
		for _, f := range []struct{ name, value string }{
			{"postName", req.Fields.PostName},
			{"description", req.Fields.Description},
			{"fbLink", req.Fields.FBLink},
		} {
			if isBlank(f.value) {
				verr.Missing = append(verr.Missing, f.name)
			}
		}
	}
	if req.Mode == ModeCreate && pending == 0 {
		verr.NoImages = true
	}
	if verr.Unwrapped != nil || verr.NoImages {
		return verr
	}
	return nil
}

// upload sends every pending file in one request and returns the hosted
// descriptors exactly as the backend produced them.
func (s *ProductService) upload(ctx context.Context, set *staging.Set, pending []staging.File) ([]model.Image, error) {
	files := make([]portfolio.File, 0, len(pending))
	closers := make([]io.Closer, 0, len(pending))
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	for _, f := range pending {
		rc, err := set.Open(f.ID)
		if err != nil {
			return nil, fmt.Errorf("opening staged file %s: %w", f.Name, err)
		}
		closers = append(closers, rc)
		files = append(files, portfolio.File{Name: f.Name, ContentType: f.MimeType, Body: rc})
	}

	res, err := s.api.UploadImages(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("uploading images: %w", err)
	}
	if !res.Success {
		return nil, ErrUploadFailed
	}
	return res.Images, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
