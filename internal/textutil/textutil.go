// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textutil holds the text normalization and truncation rules shared
// by adapters, the ranker, the context builder and the fallback engine.
package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

const ellipsis = "…"

// Normalize folds width (full-width Latin and digits become ASCII) and case,
// and trims surrounding space, so "ＡＢＣ" and "abc" compare equal.
func Normalize(s string) string {
	return strings.TrimSpace(cases.Fold().String(width.Fold.String(s)))
}

// Contains reports whether needle occurs in haystack after normalizing both.
// An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// RuneLen returns the number of characters in s after trimming space.
func RuneLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Truncate shortens s to at most max runes, ending with an ellipsis when
// text was cut. Whitespace runs are collapsed first. max <= 0 disables
// truncation.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return ellipsis
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + ellipsis
}
