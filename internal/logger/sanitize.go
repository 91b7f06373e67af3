package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxNameLength is the maximum length for task and member names in logs
	MaxNameLength = 200
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the maximum length for general strings in logs
	MaxGeneralStringLength = 2000
)

// SanitizePath sanitizes a URL path for safe logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeName sanitizes a user-supplied task or member name for logging
func SanitizeName(name string) string {
	return SanitizeString(name, MaxNameLength)
}

// SanitizeString removes control characters, repairs invalid UTF-8 and
// truncates to maxLength bytes without splitting a rune.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var builder strings.Builder
	builder.Grow(min(len(s), maxLength+3))
	for _, r := range s {
		if !unicode.IsPrint(r) && r != ' ' && r != '\t' {
			continue
		}
		if builder.Len()+utf8.RuneLen(r) > maxLength {
			builder.WriteString("...")
			break
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// SanitizeError sanitizes an error message for safe logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}
