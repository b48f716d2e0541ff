package reader

import (
	"encoding/xml"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

const ncxMediaType = "application/x-dtbncx+xml"

var errNoTOC = errors.New("no table of contents in epub")

// tocEntry is one titled target of an EPUB table of contents.
type tocEntry struct {
	href  string
	title string
}

// chapterTitles maps spine hrefs to table of contents titles. The NCX of EPUB 2 is
// preferred; EPUB 3 books without one fall back to the navigation document. A book
// with neither yields an empty map.
func chapterTitles(book *epub.Rootfile) map[string]string {
	entries, err := readTOC(book, isNCX, parseNCX)
	if err != nil || len(entries) == 0 {
		entries, _ = readTOC(book, isNavDocument, parseNav)
	}
	return titleIndex(entries)
}

// titleIndex keys every entry by its full href, its href without fragment and its
// base name. The first entry for a key wins, so a chapter keeps its own title
// rather than that of a section inside it.
func titleIndex(entries []tocEntry) map[string]string {
	titles := make(map[string]string)
	for _, e := range entries {
		file, _, _ := strings.Cut(e.href, "#")
		for _, k := range []string{e.href, file, path.Base(file)} {
			if _, ok := titles[k]; !ok && k != "" && k != "." {
				titles[k] = e.title
			}
		}
	}
	return titles
}

func isNCX(item *epub.Item) bool {
	return item.MediaType == ncxMediaType
}

func isNavDocument(item *epub.Item) bool {
	if item.MediaType != "application/xhtml+xml" {
		return false
	}
	base := strings.ToLower(path.Base(item.HREF))
	return strings.Contains(base, "nav") || strings.Contains(base, "toc")
}

func readTOC(book *epub.Rootfile, match func(*epub.Item) bool, parse func(io.Reader) ([]tocEntry, error)) ([]tocEntry, error) {
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if !match(item) {
			continue
		}
		r, err := item.Open()
		if err != nil {
			return nil, err
		}
		entries, err := parse(r)
		r.Close()
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, errNoTOC
}

type ncxDocument struct {
	Points []ncxPoint `xml:"navMap>navPoint"`
}

type ncxPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxPoint `xml:"navPoint"`
}

// parseNCX flattens an NCX nav map in reading order.
func parseNCX(r io.Reader) ([]tocEntry, error) {
	var doc ncxDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	var entries []tocEntry
	var walk func([]ncxPoint)
	walk = func(points []ncxPoint) {
		for _, p := range points {
			entries = append(entries, tocEntry{href: p.Content.Src, title: strings.TrimSpace(p.Label)})
			walk(p.Children)
		}
	}
	walk(doc.Points)
	return entries, nil
}

// parseNav reads the links of an EPUB 3 navigation document. The nav marked
// epub:type="toc" is used when present, otherwise the first nav.
func parseNav(r io.Reader) ([]tocEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var navs []*html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "nav" {
			navs = append(navs, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if len(navs) == 0 {
		return nil, errNoTOC
	}
	toc := navs[0]
	for _, n := range navs {
		if attr(n, "epub:type") == "toc" {
			toc = n
			break
		}
	}

	var entries []tocEntry
	var links func(*html.Node)
	links = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); href != "" {
				entries = append(entries, tocEntry{href: href, title: strings.Join(strings.Fields(textOf(n)), " ")})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			links(c)
		}
	}
	links(toc)
	return entries, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
	}
	return sb.String()
}
