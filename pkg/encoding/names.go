// Package encoding provides text handling for names embedded in model files.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeName converts name bytes from a model file to a UTF-8 string.
// Names are ASCII in practice, but legacy export tools wrote Windows-1252
// bytes, so invalid UTF-8 falls back to a Windows-1252 decode. Trailing
// null padding is stripped.
func DecodeName(data []byte) string {
	data = TrimNullBytes(data)
	if utf8.Valid(data) {
		return string(data)
	}
	decoder := charmap.Windows1252.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// EncodeName converts a UTF-8 string to the bytes stored in a model file.
// Names that fit Windows-1252 are written in that encoding so legacy tools
// can still read them; anything else is written as UTF-8.
func EncodeName(s string) []byte {
	encoder := charmap.Windows1252.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// NormalizeModelPath normalizes a model file path for case-insensitive
// lookup. Game data references use backslashes and mixed case.
func NormalizeModelPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}
