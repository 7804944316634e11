package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Alice Example", "Alice Example"},
		{"script stripped", `Alice<script>alert(1)</script>`, "Alice"},
		{"tags stripped, text kept", "<b>Alice</b> B", "Alice B"},
		{"whitespace trimmed", "  Alice  ", "Alice"},
		{"ampersand survives", "Tom & Jerry", "Tom & Jerry"},
		{"event handler stripped", `<img src=x onerror=alert(1)>Alice`, "Alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
