package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string, validating it is valid UTF-8.
// Invalid sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
