package fetcher

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode wraps r so that a leading UTF-8 or UTF-16 byte order mark is honoured
// and stripped. Input without a BOM is passed through as UTF-8.
func Decode(r io.Reader) io.Reader {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return transform.NewReader(r, dec)
}
