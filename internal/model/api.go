// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// MessageUserCreated is the message the backend returns when a Google
// sign-in created a new account instead of opening a session.
const MessageUserCreated = "User created"

// GoogleAuthResult is the response of the Google exchange endpoint.
// Either Message is MessageUserCreated, or Token and User are set.
type GoogleAuthResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

// Created reports whether the exchange registered a new account.
func (r *GoogleAuthResult) Created() bool {
	return r.Message == MessageUserCreated
}

// UploadResult is the response of the image upload endpoint.
type UploadResult struct {
	Success bool    `json:"success"`
	Images  []Image `json:"images"`
	Message string  `json:"message,omitempty"`
}

// MutationResult is the response of product create and update calls.
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
