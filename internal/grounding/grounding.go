// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grounding projects ranked knowledge items into the plain-text
// context lines handed to the answer synthesizer.
package grounding

import (
	"fmt"
	"strings"

	"github.com/pdiddy/civicqa/internal/textutil"
	"github.com/pdiddy/civicqa/pkg/types"
)

const (
	// DefaultLimit is the number of items projected when no limit is given.
	DefaultLimit = 5

	// SnippetRunes bounds each line's snippet.
	SnippetRunes = 120
)

// BuildContext renders the first limit items as "[KIND] title: snippet"
// lines, appending " (url)" when the item links out. limit <= 0 uses
// DefaultLimit.
func BuildContext(items []types.KnowledgeItem, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line(it))
	}
	return lines
}

// Line renders a single item.
func Line(it types.KnowledgeItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", it.SourceKind.Tag(), strings.TrimSpace(it.Title))
	if snippet := textutil.Truncate(it.Snippet, SnippetRunes); snippet != "" {
		b.WriteString(": ")
		b.WriteString(snippet)
	}
	if it.ExternalURL != "" {
		fmt.Fprintf(&b, " (%s)", it.ExternalURL)
	}
	return b.String()
}
