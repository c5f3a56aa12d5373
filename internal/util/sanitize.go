package util

import (
	"fmt"
	"strings"
	"unicode"

	"signage-studio/internal/model"
)

// MaxNameLength bounds block and timeline display names, in runes.
const MaxNameLength = 128

// SanitizeName cleans a display name shown in the property panel title:
// control and invisible characters are dropped and whitespace runs collapse
// to one space.
func SanitizeName(name string) (string, error) {
	if strings.Contains(name, "\x00") {
		return "", fmt.Errorf("%w: name contains null bytes", model.ErrInvalidInput)
	}

	builder := strings.Builder{}
	builder.Grow(len(name))

	space := false
	for _, char := range name {
		if unicode.IsSpace(char) {
			space = builder.Len() > 0
			continue
		}
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		if space {
			builder.WriteByte(' ')
			space = false
		}
		builder.WriteRune(char)
	}

	cleaned := builder.String()
	if cleaned == "" {
		return "", fmt.Errorf("%w: name cannot be empty", model.ErrInvalidInput)
	}

	// Truncate by runes (not bytes) to avoid splitting multi-byte characters.
	runes := []rune(cleaned)
	if len(runes) > MaxNameLength {
		cleaned = strings.TrimSpace(string(runes[:MaxNameLength]))
	}

	return cleaned, nil
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u2060', // Word Joiner
		'\uFEFF', // Zero-Width No-Break Space / BOM
		'\uFFF9', // Interlinear Annotation Anchor
		'\uFFFA', // Interlinear Annotation Separator
		'\uFFFB': // Interlinear Annotation Terminator
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
