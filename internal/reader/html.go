package reader

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-shiori/go-readability"
)

// HTMLFormat implements Format for saved web pages. The main article is located
// with readability; navigation and boilerplate are dropped.
type HTMLFormat struct{}

func init() {
	Register(&HTMLFormat{})
}

func (f *HTMLFormat) Name() string         { return "HTML" }
func (f *HTMLFormat) Extensions() []string { return []string{".html", ".htm", ".xhtml"} }

func (f *HTMLFormat) Extract(filename string) (Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Document{}, err
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filename
	}
	return ExtractArticle(data, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
}

// ExtractArticle pulls the readable article out of an HTML page.
func ExtractArticle(page []byte, pageURL *url.URL) (Document, error) {
	article, err := readability.FromReader(bytes.NewReader(stripRuby(page)), pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("failed to extract article: %w", err)
	}
	return Document{
		Title:   article.Title,
		Author:  article.Byline,
		Content: normalizeLines(article.TextContent),
	}, nil
}

var (
	rubyText  = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	rubyParen = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// stripRuby removes furigana so annotated base text is not followed by its reading.
func stripRuby(page []byte) []byte {
	page = rubyText.ReplaceAll(page, nil)
	return rubyParen.ReplaceAll(page, nil)
}
