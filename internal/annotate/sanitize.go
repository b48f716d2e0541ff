// Package annotate injects highlight markup around categorised terms in reading text.
//
// Text is first escaped into markup-safe form by Sanitize. Terms are then placed by
// Apply (one category at a time) or by an Engine (a whole mode at once). Placement
// works on a span list rather than on the rendered string: the markup is tokenised
// into text runs, opaque tags and existing spans, and matches are only searched in
// text runs that are not already inside a span.
package annotate

import "strings"

// Break is the marker a single newline is converted to.
const Break = "<br/><br/>"

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Sanitize escapes &, < and > and converts newlines into paragraph breaks.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			textEscaper.WriteString(&b, text)
			return b.String()
		}
		textEscaper.WriteString(&b, text[:i])
		b.WriteString(Break)
		text = text[i+1:]
	}
}

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
