// Package reader turns files into readable documents and documents into sentence units.
package reader

import (
	"regexp"
	"strings"
)

// Document is the text of a book together with its chapter boundaries.
type Document struct {
	Title    string
	Author   string
	Content  string
	Chapters []Chapter
}

// Chapter marks where a chapter starts in Document.Content.
type Chapter struct {
	Title  string
	Offset int // byte offset into Content
}

// ChapterText returns the text of chapter i. A document without chapters has one
// chapter spanning the whole content.
func (d Document) ChapterText(i int) string {
	if len(d.Chapters) == 0 {
		return d.Content
	}
	if i < 0 {
		i = 0
	}
	if i >= len(d.Chapters) {
		i = len(d.Chapters) - 1
	}
	start := clampOffset(d.Chapters[i].Offset, len(d.Content))
	end := len(d.Content)
	if i+1 < len(d.Chapters) {
		end = clampOffset(d.Chapters[i+1].Offset, len(d.Content))
	}
	if end < start {
		end = start
	}
	return d.Content[start:end]
}

// ChapterCount returns the number of chapters, at least 1.
func (d Document) ChapterCount() int {
	if len(d.Chapters) == 0 {
		return 1
	}
	return len(d.Chapters)
}

// ChapterTitle returns the title of chapter i, or the document title.
func (d Document) ChapterTitle(i int) string {
	if i >= 0 && i < len(d.Chapters) && d.Chapters[i].Title != "" {
		return d.Chapters[i].Title
	}
	return d.Title
}

func clampOffset(off, n int) int {
	if off < 0 {
		return 0
	}
	if off > n {
		return n
	}
	return off
}

// unitPattern matches a run of non-terminal characters followed by any terminal
// punctuation. Terminals: . ! ? 。 ！ ？ and newline.
var unitPattern = regexp.MustCompile(`[^.!?。！？\n]+[.!?。！？\n]*`)

// Segment splits text into sentence units, keeping terminal punctuation at the end
// of each unit. Units that are empty or whitespace-only are dropped. Text with no
// terminal punctuation comes back as a single unit.
func Segment(text string) []string {
	matches := unitPattern.FindAllString(text, -1)
	units := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m) == "" {
			continue
		}
		units = append(units, m)
	}
	return units
}

// normalizeLines trims every line and drops blank ones.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
