// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package portfolio is a typed client for the portfolio REST API.
// Every response is decoded into explicit types from the model package and
// checked for the fields the console relies on.
package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/lensfolio/folio-admin/internal/model"
)

// Client configuration constants
const (
	DefaultTimeout   = 15 * time.Second
	MaxResponseBytes = 8 << 20
	UploadFieldName  = "images"
)

// Endpoint paths.
const (
	pathGoogleAuth    = "/api/users/google"
	pathMe            = "/api/users/me"
	pathUsers         = "/api/users"
	pathProducts      = "/api/products"
	pathUploadImages  = "/api/products/uploadImages"
	pathCreateProduct = "/api/products/create"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client // overrides Timeout when set
	Logger     *slog.Logger
}

// Client talks to the portfolio backend.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

// New creates a Client. BaseURL must be an absolute http(s) URL.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("portfolio: invalid base URL %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = "folio-admin"
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      hc,
		userAgent: ua,
		logger:    logger,
	}, nil
}

// GoogleAuth exchanges a Google access token for a backend session.
func (c *Client) GoogleAuth(ctx context.Context, accessToken string) (*model.GoogleAuthResult, error) {
	if accessToken == "" {
		return nil, errors.New("portfolio: empty Google access token")
	}

	var res model.GoogleAuthResult
	if err := c.doJSON(ctx, http.MethodPost, pathGoogleAuth, "", map[string]string{"token": accessToken}, &res); err != nil {
		return nil, err
	}

	if res.Created() {
		return &res, nil
	}
	if res.Token == "" {
		return nil, &DecodeError{Path: pathGoogleAuth, Reason: "response has neither a token nor a registration message"}
	}
	if res.User == nil {
		return nil, &DecodeError{Path: pathGoogleAuth, Reason: "response has a token but no user"}
	}
	return &res, nil
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	var u model.User
	if err := c.doJSON(ctx, http.MethodGet, pathMe, token, nil, &u); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, &DecodeError{Path: pathMe, Reason: "invalid user", Err: err}
	}
	return &u, nil
}

// ListUsers returns all users. The bearer header is sent only when token is non-empty.
// The endpoint has answered both with a bare array and with {"users": [...]}.
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, pathUsers, token, nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var users []model.User
		if err := json.Unmarshal(trimmed, &users); err != nil {
			return nil, &DecodeError{Path: pathUsers, Reason: "invalid user array", Err: err}
		}
		return users, nil
	}

	var wrapped struct {
		Users *[]model.User `json:"users"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, &DecodeError{Path: pathUsers, Reason: "expected an array or an object with users", Err: err}
	}
	if wrapped.Users == nil {
		return nil, &DecodeError{Path: pathUsers, Reason: `missing "users" field`}
	}
	return *wrapped.Users, nil
}

// ListProducts returns all products. The bearer header is sent only when token is non-empty.
func (c *Client) ListProducts(ctx context.Context, token string) ([]model.Product, error) {
	var res struct {
		Products *[]model.Product `json:"products"`
	}
	if err := c.doJSON(ctx, http.MethodGet, pathProducts, token, nil, &res); err != nil {
		return nil, err
	}
	if res.Products == nil {
		return nil, &DecodeError{Path: pathProducts, Reason: `missing "products" field`}
	}
	return *res.Products, nil
}

// File is one image sent to UploadImages.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadImages sends all files in one multipart request under the "images" field.
// The request is unauthenticated, as the backend expects.
func (c *Client) UploadImages(ctx context.Context, files []File) (*model.UploadResult, error) {
	if len(files) == 0 {
		return nil, errors.New("portfolio: no files to upload")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, files))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, pathUploadImages, "", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res model.UploadResult
	if err := c.do(req, &res); err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	if res.Success {
		if len(res.Images) == 0 {
			return nil, &DecodeError{Path: pathUploadImages, Reason: "success without images"}
		}
		for i, img := range res.Images {
			if img.URL == "" {
				return nil, &DecodeError{Path: pathUploadImages, Reason: fmt.Sprintf("image %d has no url", i)}
			}
		}
	}
	return &res, nil
}

func writeMultipart(mw *multipart.Writer, files []File) error {
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadFieldName, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return fmt.Errorf("copying %s: %w", f.Name, err)
		}
	}
	return mw.Close()
}

// CreateProduct creates a product. The backend does not require a token for this call.
func (c *Client) CreateProduct(ctx context.Context, in model.ProductInput) (*model.MutationResult, error) {
	var res model.MutationResult
	if err := c.doJSON(ctx, http.MethodPost, pathCreateProduct, "", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateProduct replaces product id.
func (c *Client) UpdateProduct(ctx context.Context, token, id string, in model.ProductInput) (*model.MutationResult, error) {
	if id == "" {
		return nil, errors.New("portfolio: empty product id")
	}
	var res model.MutationResult
	if err := c.doJSON(ctx, http.MethodPut, productPath(id), token, in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteProduct deletes product id.
func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	if id == "" {
		return errors.New("portfolio: empty product id")
	}
	return c.doJSON(ctx, http.MethodDelete, productPath(id), token, nil, nil)
}

// Ping reports whether the backend answers HTTP at all. Any status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodHead, "/", "", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("portfolio: ping: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func productPath(id string) string {
	return pathProducts + "/" + url.PathEscape(id)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("portfolio: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("portfolio: encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return fmt.Errorf("portfolio: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("backend request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return fmt.Errorf("portfolio: reading %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Path: req.URL.Path, Reason: "invalid JSON", Err: err}
	}
	return nil
}

// errorMessage extracts a human message from an error body.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		return e.Error
	}
	return ""
}
