package reader

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Extract renders the file to text, one chapter per header. Text before the first
// header becomes an untitled leading chapter; the first level-1 header names the document.
func (f *MarkdownFormat) Extract(filename string) (Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Document{}, err
	}
	return parseMarkdown(data)
}

func parseMarkdown(data []byte) (Document, error) {
	type section struct {
		title string
		body  []string
	}
	var sections []section
	current := section{}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	var doc Document
	for _, line := range lines {
		if match := headerRegex.FindStringSubmatch(line); match != nil {
			if current.title != "" || len(current.body) > 0 {
				sections = append(sections, current)
			}
			title := strings.TrimSpace(match[2])
			if doc.Title == "" && len(match[1]) == 1 {
				doc.Title = title
			}
			current = section{title: title}
		}
		current.body = append(current.body, line)
	}
	if current.title != "" || len(current.body) > 0 {
		sections = append(sections, current)
	}

	md := goldmark.New()
	var out strings.Builder
	for _, s := range sections {
		var buf bytes.Buffer
		if err := md.Convert([]byte(strings.Join(s.body, "\n")), &buf); err != nil {
			return Document{}, err
		}
		text := extractTextFromHTML(buf.String())
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		doc.Chapters = append(doc.Chapters, Chapter{Title: s.title, Offset: out.Len()})
		out.WriteString(text)
	}
	doc.Content = out.String()
	return doc, nil
}
