package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const byteOrderMark = "\uFEFF"

// NormalizeHeader cleans a source header before it is looked up: a leading
// BOM and surrounding whitespace are removed and the text is NFC composed.
// Case and inner spacing are preserved, the map is matched exactly.
func NormalizeHeader(name string) string {
	name = strings.TrimPrefix(name, byteOrderMark)
	return norm.NFC.String(strings.TrimSpace(name))
}
