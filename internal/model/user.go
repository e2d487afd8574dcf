// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the portfolio API records handled by the admin console
// (User, Product, Image), the result envelopes of mutating calls, and the
// local Event log entries.
package model

import (
	"errors"
	"strings"
)

// RoleAdmin is the only role allowed into the admin console.
const RoleAdmin = "admin"

// ErrMissingRole is returned when a user record has no role.
var ErrMissingRole = errors.New("user record has no role")

// User is a portfolio account as returned by the backend.
// The role travels in the "type" field.
type User struct {
	ID             string `json:"_id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Role           string `json:"type"`
	IsBlocked      bool   `json:"isBlocked"`
	ProfilePicture string `json:"profilePicture"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName is the name shown in the admin header.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}

// Validate checks the fields the console depends on.
func (u *User) Validate() error {
	if u.Role == "" {
		return ErrMissingRole
	}
	return nil
}
