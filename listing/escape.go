package listing

import (
	"strings"
)

// PathEscape percent-encodes a file name for use in an href.
// Unreserved characters (RFC 3986: letters, digits, '-', '.', '_', '~') pass through; every other byte,
// including '%' itself and each byte of a multi-byte rune, becomes %XX.
// Unlike url.PathEscape, nothing else is left bare: names like "a:b" or "a&b" come out the same
// way on every page.
func PathEscape(s string) string {
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			return newEscaped(s)
		}
	}
	return s // nothing to escape.
}

func newEscaped(s string) string {
	buf := new(strings.Builder)
	buf.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		if unreserved(s[i]) {
			buf.WriteByte(s[i])
			continue
		}
		buf.WriteString(byteToPercent[s[i]])
	}
	return buf.String()
}

func unreserved(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	case b == '-', b == '.', b == '_', b == '~':
		return true
	default:
		return false
	}
}

// byteToPercent[b] is "%XX" for every byte b, uppercase hex.
var byteToPercent = func() (t [256]string) {
	const hex = "0123456789ABCDEF"
	for i := range t {
		t[i] = string([]byte{'%', hex[i>>4], hex[i&0xF]})
	}
	return t
}()

// html.EscapeString writes &#34; for '"'; listings have always used &quot;, so keep doing that.
var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// HTMLEscape escapes &, <, >, " and ' for use in element text or a quoted attribute.
func HTMLEscape(s string) string { return htmlReplacer.Replace(s) }
