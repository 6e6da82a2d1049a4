// Package svgdoc holds the text-level helpers for SVG documents: the
// eligibility check, namespace injection, and data URI encoding.
package svgdoc

import (
	"regexp"
	"strings"
)

// Namespace is the SVG XML namespace.
const Namespace = "http://www.w3.org/2000/svg"

var (
	svgRegion = regexp.MustCompile(`(?is)<svg(\s[^>]*)?>.*</svg\s*>`)
	svgOpen   = regexp.MustCompile(`(?is)<svg(\s[^>]*)?>`)
	xmlnsAttr = regexp.MustCompile(`(?is)\sxmlns\s*=`)
)

// IsSVG reports whether text contains a <svg ...>...</svg> region.
func IsSVG(text string) bool {
	return svgRegion.MatchString(text)
}

// AddNamespace adds the default SVG namespace to the first <svg> element
// when it has none. Rasterisers refuse namespace-less documents.
func AddNamespace(text string) string {
	loc := svgOpen.FindStringIndex(text)
	if loc == nil {
		return text
	}
	tag := text[loc[0]:loc[1]]
	if xmlnsAttr.MatchString(tag) {
		return text
	}
	insert := loc[0] + len("<svg")
	return text[:insert] + ` xmlns="` + Namespace + `"` + text[insert:]
}

// DataURI returns text as a data:image/svg+xml URI.
func DataURI(text string) string {
	return "data:image/svg+xml," + EncodeURIComponent(text)
}

// EncodeURIComponent percent-encodes s leaving only the characters
// A-Z a-z 0-9 - _ . ! ~ * ' ( ) unescaped.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
