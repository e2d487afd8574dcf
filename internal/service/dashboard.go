// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/lensfolio/folio-admin/internal/fetch"
	"github.com/lensfolio/folio-admin/internal/model"
)

// RecentLimit is the number of products the dashboard lists.
const RecentLimit = 5

// DashboardSource fetches the two collections the dashboard summarizes.
type DashboardSource interface {
	ListProducts(ctx context.Context, token string) ([]model.Product, error)
	ListUsers(ctx context.Context, token string) ([]model.User, error)
}

// Dashboard is the loaded home screen.
type Dashboard struct {
	Products fetch.State[[]model.Product]
	Users    fetch.State[[]model.User]

	TotalProducts int
	TotalBlogs    int
	TotalUsers    int
	Recent        []model.Product

	// Err is the first fetch error, nil when both sides loaded.
	Err error
}

// Failed reports whether either side failed to load.
func (d *Dashboard) Failed() bool {
	return d.Err != nil
}

// LoadDashboard fetches products and users in parallel. A failure on one side
// leaves that side's stats at zero and does not cancel the other: the group
// has no shared context.
func LoadDashboard(ctx context.Context, src DashboardSource, token string) *Dashboard {
	d := &Dashboard{}

	var g errgroup.Group
	g.Go(func() error {
		d.Products = fetch.Run(ctx, func(ctx context.Context) ([]model.Product, error) {
			return src.ListProducts(ctx, token)
		})
		return d.Products.Err
	})
	g.Go(func() error {
		d.Users = fetch.Run(ctx, func(ctx context.Context) ([]model.User, error) {
			return src.ListUsers(ctx, token)
		})
		return d.Users.Err
	})
	d.Err = g.Wait()

	if d.Products.IsLoaded() {
		d.TotalProducts = len(d.Products.Data)
		d.TotalBlogs = d.TotalProducts
		d.Recent = RecentProducts(d.Products.Data, RecentLimit)
	}
	if d.Users.IsLoaded() {
		d.TotalUsers = len(d.Users.Data)
	}
	return d
}

// RecentProducts returns the last n products, newest first. products is in
// arrival order.
func RecentProducts(products []model.Product, n int) []model.Product {
	if n <= 0 || len(products) == 0 {
		return nil
	}
	start := max(len(products)-n, 0)
	recent := slices.Clone(products[start:])
	slices.Reverse(recent)
	return recent
}
