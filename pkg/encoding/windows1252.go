// Package encoding provides text encoding utilities for Gamebryo file formats.
package encoding

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeLegacy converts Windows-1252 encoded bytes to a UTF-8 string.
// Plain ASCII is returned without a copy through the decoder.
func DecodeLegacy(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// EncodeLegacy converts a UTF-8 string to Windows-1252 bytes.
// Runes with no Windows-1252 mapping are replaced by '?'.
func EncodeLegacy(s string) []byte {
	if isASCII([]byte(s)) {
		return []byte(s)
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// NormalizePath normalizes a resource path for case-insensitive lookup.
// Backslashes become forward slashes and a leading slash is dropped.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	return strings.ToLower(path)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
