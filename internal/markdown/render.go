// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

// Package markdown converts event descriptions from Markdown to sanitized HTML.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips dangerous elements like <script> and event handlers
// from rendered output. Event descriptions can originate from external feeds,
// so everything passes through the UGC policy.
var htmlSanitizer = bluemonday.UGCPolicy()

// Render converts Markdown to sanitized HTML.
func Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return htmlSanitizer.Sanitize(buf.String()), nil
}
