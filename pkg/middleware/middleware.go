// Package middleware holds helpers shared by the HTTP middleware packages.
package middleware

import (
	"strings"
	"unicode"
)

// NormalizePath replaces identifier-like path segments with ":id" so that
// metric labels and span names stay low-cardinality.
func NormalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if looksLikeID(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// looksLikeID matches UUIDs, hex object ids and numbers.
func looksLikeID(seg string) bool {
	if seg == "" {
		return false
	}
	digits, hex := 0, 0
	for _, r := range seg {
		switch {
		case unicode.IsDigit(r):
			digits++
			hex++
		case (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'):
			hex++
		case r == '-':
		default:
			return false
		}
	}
	if digits == len(seg) {
		return true
	}
	return digits > 0 && hex >= 16
}
