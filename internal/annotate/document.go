package annotate

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Kind classifies a piece of annotated markup.
type Kind int

const (
	// KindText is plain text that may still receive annotations.
	KindText Kind = iota
	// KindBreak is a line break tag.
	KindBreak
	// KindMarkup is any other tag, or a span this package did not produce.
	KindMarkup
	// KindTerm is an annotated term span.
	KindTerm
)

// Piece is one element of annotated markup, in document order.
type Piece struct {
	Kind     Kind
	Text     string // decoded text; for KindMarkup spans, their inner text
	Term     string // data-term of a KindTerm span
	Category Category
	Color    string
}

// Pieces splits markup into its text runs, breaks, tags and term spans.
func Pieces(markup string) []Piece {
	d := parse(markup)
	out := make([]Piece, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, Piece{
			Kind:     n.kind,
			Text:     n.text,
			Term:     n.term,
			Category: n.cat,
			Color:    n.color,
		})
	}
	return out
}

// node is the span-list element. raw holds the verbatim markup when the node came
// from parsed input; text nodes produced by splitting have no raw and are re-escaped.
type node struct {
	kind  Kind
	text  string
	raw   string
	term  string
	cat   Category
	color string
}

type document struct {
	nodes []node
}

// parse tokenises markup. Every <span> opens a protected region: its whole content is
// kept verbatim and never searched, which is what stops a later pass from wrapping
// text an earlier pass already claimed.
func parse(markup string) *document {
	d := &document{}
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		open  *node
		depth int
		raw   strings.Builder
		inner strings.Builder
	)
	closeSpan := func() {
		open.raw = raw.String()
		open.text = inner.String()
		d.nodes = append(d.nodes, *open)
		open = nil
		raw.Reset()
		inner.Reset()
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		// Raw must be copied first: Text, TagName and TagAttr rewrite the buffer in place.
		tok := string(z.Raw())

		if open != nil {
			raw.WriteString(tok)
			switch tt {
			case html.TextToken:
				inner.WriteString(html.UnescapeString(tok))
			case html.StartTagToken:
				if name, _ := z.TagName(); string(name) == "span" {
					depth++
				}
			case html.EndTagToken:
				if name, _ := z.TagName(); string(name) == "span" {
					depth--
					if depth == 0 {
						closeSpan()
					}
				}
			}
			continue
		}

		switch tt {
		case html.TextToken:
			// z.Text would also fold \r and \r\n into \n; decoding the raw token keeps
			// carriage returns when a match splits the run.
			d.nodes = append(d.nodes, node{kind: KindText, text: html.UnescapeString(tok), raw: tok})
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "br":
				d.nodes = append(d.nodes, node{kind: KindBreak, raw: tok})
			case "span":
				if tt == html.SelfClosingTagToken {
					d.nodes = append(d.nodes, node{kind: KindMarkup, raw: tok})
					continue
				}
				open = &node{kind: KindMarkup}
				if hasAttr {
					readSpanAttrs(z, open)
				}
				depth = 1
				raw.WriteString(tok)
			default:
				d.nodes = append(d.nodes, node{kind: KindMarkup, raw: tok})
			}
		default:
			d.nodes = append(d.nodes, node{kind: KindMarkup, raw: tok})
		}
	}
	if open != nil {
		closeSpan()
	}
	return d
}

func readSpanAttrs(z *html.Tokenizer, n *node) {
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "data-type":
			n.cat = Category(val)
		case "data-term":
			n.term = string(val)
		case "data-color":
			n.color = string(val)
		}
		if !more {
			break
		}
	}
	if n.cat.Valid() {
		n.kind = KindTerm
	}
}

func (d *document) render() string {
	var b strings.Builder
	for _, n := range d.nodes {
		if n.kind == KindText && n.raw == "" {
			b.WriteString(escapeText(n.text))
			continue
		}
		b.WriteString(n.raw)
	}
	return b.String()
}

// wrap replaces every match of re inside free text runs with a term span and
// returns the number of spans created.
func (d *document) wrap(re *regexp.Regexp, c Category, color string) int {
	var (
		out     []node
		created int
	)
	for i, n := range d.nodes {
		if n.kind != KindText {
			if out != nil {
				out = append(out, n)
			}
			continue
		}
		locs := re.FindAllStringIndex(n.text, -1)
		if len(locs) == 0 {
			if out != nil {
				out = append(out, n)
			}
			continue
		}
		if out == nil {
			out = make([]node, 0, len(d.nodes)+2*len(locs))
			out = append(out, d.nodes[:i]...)
		}
		last := 0
		for _, loc := range locs {
			if loc[0] == loc[1] {
				continue
			}
			if loc[0] > last {
				out = append(out, node{kind: KindText, text: n.text[last:loc[0]]})
			}
			out = append(out, termNode(n.text[loc[0]:loc[1]], c, color))
			last = loc[1]
			created++
		}
		if last < len(n.text) {
			out = append(out, node{kind: KindText, text: n.text[last:]})
		}
	}
	if out != nil {
		d.nodes = out
	}
	return created
}

func termNode(match string, c Category, color string) node {
	var b strings.Builder
	b.WriteString(`<span class="term term-`)
	b.WriteString(string(c))
	b.WriteString(`" data-type="`)
	b.WriteString(string(c))
	b.WriteString(`" data-color="`)
	b.WriteString(color)
	b.WriteString(`" data-term="`)
	b.WriteString(escapeAttr(match))
	b.WriteString(`" style="`)
	b.WriteString(style(c, color))
	b.WriteString(`">`)
	b.WriteString(escapeText(match))
	b.WriteString(`</span>`)
	return node{kind: KindTerm, text: match, raw: b.String(), term: match, cat: c, color: color}
}
