// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import "fmt"

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string // Short git commit hash (e.g., "abc1234")
	BuildTime string // Build timestamp in RFC3339 format
}

// String formats the version for the -version flag.
func (i Info) String() string {
	return fmt.Sprintf("folio-admin %s (commit: %s, built: %s)", i.versionOrDev(), i.GitCommit, i.BuildTime)
}

// UserAgent is sent with every backend request.
func (i Info) UserAgent() string {
	return "folio-admin/" + i.versionOrDev()
}

func (i Info) versionOrDev() string {
	if i.Version == "" {
		return "dev"
	}
	return i.Version
}
