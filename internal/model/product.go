// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Image is a hosted image descriptor produced by the upload endpoint.
// It is forwarded to create and update calls unchanged.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Product is a portfolio post.
type Product struct {
	ID          string  `json:"_id"`
	ProductID   string  `json:"productId,omitempty"`
	PostName    string  `json:"postName"`
	Description string  `json:"description"`
	FBLink      string  `json:"fbLink"`
	Images      []Image `json:"Images"`
	DateTime    string  `json:"dateTime"`
}

// Thumbnail returns the first image URL or an empty string.
func (p *Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// dateTimeLayouts are the timestamp formats the backend has been seen to emit.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CreatedAt parses DateTime. ok is false when the value is empty or unrecognized.
func (p *Product) CreatedAt() (t time.Time, ok bool) {
	raw := strings.TrimSpace(p.DateTime)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ProductInput is the body of create and update calls.
type ProductInput struct {
	PostName    string  `json:"postName"`
	Description string  `json:"description"`
	FBLink      string  `json:"fbLink"`
	Images      []Image `json:"Images"`
}

// Validate ensures the text fields are filled in.
func (in ProductInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.PostName) == "" {
		missing = append(missing, "postName")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(in.FBLink) == "" {
		missing = append(missing, "fbLink")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// ErrMissingFields is returned by ProductInput.Validate.
var ErrMissingFields = errors.New("missing required fields")
