package reader

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Extract reads the spine in order. Each spine item with text becomes a chapter,
// titled from the NCX table of contents when one matches.
func (f *EPUBFormat) Extract(filename string) (Document, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return Document{}, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return Document{}, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	titles := chapterTitles(book)

	doc := Document{
		Title:  strings.TrimSpace(book.Metadata.Title),
		Author: strings.TrimSpace(book.Metadata.Creator),
	}
	var out strings.Builder

	for i, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}

		text := extractTextFromHTML(string(data))
		if text == "" {
			continue
		}

		title := fmt.Sprintf("Section %d", i+1)
		if t, ok := titles[ref.Item.HREF]; ok {
			title = t
		} else if t, ok := titles[path.Base(ref.Item.HREF)]; ok {
			title = t
		}

		if out.Len() > 0 {
			out.WriteString("\n")
		}
		doc.Chapters = append(doc.Chapters, Chapter{Title: title, Offset: out.Len()})
		out.WriteString(text)
	}

	doc.Content = out.String()
	return doc, nil
}

// extractTextFromHTML returns the text of an XHTML page, one block element per line.
func extractTextFromHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			out.WriteString(collapseSpace(n.Data))
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "rt", "rp":
				return
			case "br":
				out.WriteString("\n")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			out.WriteString("\n")
		}
	}
	walk(doc)
	return normalizeLines(out.String())
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "blockquote", "section", "article", "tr", "pre",
		"h1", "h2", "h3", "h4", "h5", "h6", "title":
		return true
	}
	return false
}

// collapseSpace folds runs of whitespace into one space, keeping a space at either
// end if the original had one there.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if first := s[0]; first == ' ' || first == '\n' || first == '\t' || first == '\r' {
		out = " " + out
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' || last == '\r' {
		out += " "
	}
	return out
}
