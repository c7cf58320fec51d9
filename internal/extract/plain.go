package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodePlain attempts UTF-8, falls back to Latin-1, and as a last
// resort drops invalid bytes. Never fails.
func decodePlain(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content); err == nil {
		return string(decoded)
	}
	return strings.ToValidUTF8(string(content), "")
}
