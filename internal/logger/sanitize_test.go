package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "empty", in: "", max: 10, want: ""},
		{name: "plain", in: "/api/v1/tasks", max: 100, want: "/api/v1/tasks"},
		{name: "newline injection", in: "a\nlevel=error", max: 100, want: "alevel=error"},
		{name: "invalid utf8", in: "ok\xffok", max: 100, want: "okok"},
		{name: "truncates", in: "abcdef", max: 3, want: "abc..."},
		{name: "does not split runes", in: "ééé", max: 3, want: "é..."},
		{name: "default max", in: strings.Repeat("x", MaxGeneralStringLength+1), max: 0, want: strings.Repeat("x", MaxGeneralStringLength) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q, want empty", got)
	}
	if got := SanitizeError(errors.New("boom\r\n")); got != "boom" {
		t.Errorf("SanitizeError = %q, want boom", got)
	}
}

func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	for _, debug := range []bool{false, true} {
		l, err := NewProductionLogger("test", debug)
		if err != nil {
			t.Fatalf("NewProductionLogger(%v): %v", debug, err)
		}
		if got := l.Core().Enabled(level(true)); got != debug {
			t.Errorf("debug enabled = %v, want %v", got, debug)
		}
	}
}
