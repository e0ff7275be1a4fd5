package bot

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "short label unchanged",
			input: "call Alice",
			want:  "call Alice",
		},
		{
			name:  "exactly at the limit unchanged",
			input: strings.Repeat("a", maxButtonLabel),
			want:  strings.Repeat("a", maxButtonLabel),
		},
		{
			name:  "long ascii label truncated",
			input: strings.Repeat("a", maxButtonLabel+10),
			want:  strings.Repeat("a", maxButtonLabel) + "…",
		},
		{
			name:  "long cyrillic label truncated on a rune boundary",
			input: strings.Repeat("п", maxButtonLabel+10),
			want:  strings.Repeat("п", maxButtonLabel) + "…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := truncateLabel(tt.input)
			if got != tt.want {
				t.Errorf("truncateLabel(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateLabel produced invalid UTF-8: %q", got)
			}
		})
	}
}
