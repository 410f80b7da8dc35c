// Package pathutil implements filesystem-safe name sanitization and
// time-ordered identifier minting for the cache subsystem (spec.md §4.C).
package pathutil

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxBytes is the default byte budget for a sanitized name, measured
// after Unicode NFD normalization and UTF-8 encoding.
const DefaultMaxBytes = 180

var illegal = map[rune]bool{'/': true, 0: true, '\\': true}

// SanitizeDirname sanitizes name for use as a directory name. The extension
// (if any, by convention directories have none) is not treated specially.
func SanitizeDirname(name string, maxBytes int) string {
	return sanitize(name, "", maxBytes)
}

// SanitizeFilename sanitizes name for use as a file name, preserving ext (a
// leading-dot extension such as ".flac") outside the truncation budget so
// the extension always survives intact.
func SanitizeFilename(name, ext string, maxBytes int) string {
	return sanitize(name, ext, maxBytes)
}

func sanitize(name, ext string, maxBytes int) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	s := norm.NFD.String(name)

	var b strings.Builder
	for _, r := range s {
		if illegal[r] {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '.'
	})

	if s == "." || s == ".." || s == "" {
		s = "_"
	}

	return truncate(s, ext, maxBytes)
}

// truncate cuts s on a UTF-8 code-point boundary so that len(s)+len(ext) <=
// maxBytes, reserving room for neither a collision suffix (callers append
// that afterwards via WithCollisionSuffix, which re-truncates) nor anything
// else.
func truncate(s, ext string, maxBytes int) string {
	budget := maxBytes - len(ext)
	if budget < 1 {
		budget = 1
	}
	if len(s) <= budget {
		return s + ext
	}

	b := []byte(s)[:budget]
	for len(b) > 0 && !isUTF8Boundary(b) {
		b = b[:len(b)-1]
	}
	return string(b) + ext
}

func isUTF8Boundary(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	// the cut is on a boundary iff the last rune in b decodes completely;
	// a trailing lead byte or partial sequence decodes as a 1-byte RuneError
	r, size := utf8.DecodeLastRune(b)
	return r != utf8.RuneError || size > 1
}

// WithCollisionSuffix renders the nth (n >= 2) colliding variant of a
// sanitized name, e.g. "Track Title  [2].flac", re-truncating so the whole
// result (base + suffix + ext) still fits maxBytes.
func WithCollisionSuffix(base, ext string, n, maxBytes int) string {
	if n < 2 {
		return base + ext
	}
	suffix := fmt.Sprintf("  [%d]", n)
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	budget := maxBytes - len(ext) - len(suffix)
	if budget < 1 {
		budget = 1
	}
	b := []byte(base)
	if len(b) > budget {
		b = b[:budget]
		for len(b) > 0 && !isUTF8Boundary(b) {
			b = b[:len(b)-1]
		}
	}
	return string(b) + suffix + ext
}
