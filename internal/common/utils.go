package common

import (
	"errors"
	"strings"
)

var (
	// ErrNoMarker is returned by Span when the marker does not occur.
	ErrNoMarker = errors.New("marker not found")
	// ErrUnterminated is returned by Span when the marker occurs but no
	// closing token follows it.
	ErrUnterminated = errors.New("closing token not found after marker")
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Span returns the text between the first marker in s and the first closing
// token after it. The closing token is included except for its last dropTail
// bytes, so Span(s, "var x =", "};", 1) keeps the brace and drops the
// semicolon. Surrounding whitespace is trimmed.
func Span(s, marker, closing string, dropTail int) (string, error) {
	start := strings.Index(s, marker)
	if start < 0 {
		return "", ErrNoMarker
	}
	start += len(marker)

	end := strings.Index(s[start:], closing)
	if end < 0 {
		return "", ErrUnterminated
	}
	end = start + end + len(closing) - dropTail
	if end < start {
		end = start
	}

	return strings.TrimSpace(s[start:end]), nil
}
