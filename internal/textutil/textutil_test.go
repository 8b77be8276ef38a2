// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textutil

import (
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii case", "YouBike", "youbike"},
		{"full width latin", "ＹｏｕＢｉｋｅ", "youbike"},
		{"full width digits", "１９９９", "1999"},
		{"cjk unchanged", "停車場", "停車場"},
		{"trims", "  垃圾車 ", "垃圾車"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		haystack, needle string
		want             bool
	}{
		{"竹北市 YouBike 站點", "ｙｏｕｂｉｋｅ", true},
		{"垃圾車時刻表", "垃圾車", true},
		{"垃圾車時刻表", "停車", false},
		{"anything", "   ", false},
		{"anything", "", false},
	}
	for _, tt := range tests {
		if got := Contains(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("Contains(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}

func TestRuneLen(t *testing.T) {
	if got := RuneLen(" 停車 "); got != 2 {
		t.Errorf("RuneLen = %d, want 2", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short kept", "竹北市公所", 10, "竹北市公所"},
		{"cut with ellipsis", "竹北市公所服務時間", 5, "竹北市公…"},
		{"collapses whitespace", "a \n\t b", 10, "a b"},
		{"zero disables", "abcdef", 0, "abcdef"},
		{"one rune", "abcdef", 1, "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if tt.max > 0 && utf8.RuneCountInString(got) > tt.max {
				t.Errorf("Truncate result %q longer than %d runes", got, tt.max)
			}
		})
	}
}
