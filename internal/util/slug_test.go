// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Beach   Wedding  2024 ", "beach-wedding-2024"},
		{"Café Crème", "cafe-creme"},
		{"Привет мир", "privet-mir"},
		{"a--b__c", "a-b-c"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugify_Length(t *testing.T) {
	got := Slugify(strings.Repeat("ab ", 100))
	if len(got) > maxSlugLength {
		t.Errorf("len = %d, want <= %d", len(got), maxSlugLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug ends with hyphen: %q", got)
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"IMG 0001.JPG", "img-0001.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\Фото.png`, "foto.png"},
		{".hidden", "image.hidden"},
		{"noext", "noext"},
		{"weird.p n g", "weird"},
		{"", "image"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SafeFilename(tt.input); got != tt.want {
				t.Errorf("SafeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 70, "short"},
		{strings.Repeat("x", 70), 70, strings.Repeat("x", 70)},
		{strings.Repeat("x", 71), 70, strings.Repeat("x", 70) + "..."},
		{"ééééé", 3, "ééé..."},
		{"abc", -1, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.input, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}
