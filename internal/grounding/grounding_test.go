// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grounding

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/civicqa/pkg/types"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name string
		item types.KnowledgeItem
		want string
	}{
		{
			"wiki with url",
			types.KnowledgeItem{SourceKind: types.SourceWiki, Title: "竹北市", Snippet: "新竹縣縣治", ExternalURL: "https://zh.wikipedia.org/wiki/竹北市"},
			"[WIKI] 竹北市: 新竹縣縣治 (https://zh.wikipedia.org/wiki/竹北市)",
		},
		{
			"post without url",
			types.KnowledgeItem{SourceKind: types.SourcePost, Title: "巷口違停", Snippet: "晚上常有車停紅線"},
			"[POST] 巷口違停: 晚上常有車停紅線",
		},
		{
			"no snippet",
			types.KnowledgeItem{SourceKind: types.SourceSafety, Title: "颱風警報"},
			"[SAFETY] 颱風警報",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Line(tt.item))
		})
	}
}

func TestLineTruncatesSnippet(t *testing.T) {
	long := strings.Repeat("長", 300)
	line := Line(types.KnowledgeItem{SourceKind: types.SourceReport, Title: "報告", Snippet: long})

	snippet := strings.TrimPrefix(line, "[REPORT] 報告: ")
	assert.Equal(t, SnippetRunes, utf8.RuneCountInString(snippet))
	assert.True(t, strings.HasSuffix(snippet, "…"))
}

func TestBuildContextLimit(t *testing.T) {
	var items []types.KnowledgeItem
	for i := range 8 {
		items = append(items, types.KnowledgeItem{SourceKind: types.SourceGov, Title: fmt.Sprintf("t%d", i)})
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-1, DefaultLimit},
		{3, 3},
		{20, 8},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			lines := BuildContext(items, tt.limit)
			require.Len(t, lines, tt.want)
			assert.Equal(t, "[GOV] t0", lines[0])
		})
	}
}

func TestBuildContextEmpty(t *testing.T) {
	assert.Empty(t, BuildContext(nil, 5))
}
