package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarkdownChapters(t *testing.T) {
	// Create a temp markdown file
	tmpDir := t.TempDir()
	mdFile := filepath.Join(tmpDir, "test.md")

	content := `# Introduction
This is the **introduction**.

## Getting Started
Here's how to get started with the project.

### Prerequisites
You'll need these things installed.

# Advanced Topics
More complex stuff here.
`
	if err := os.WriteFile(mdFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	f := &MarkdownFormat{}
	doc, err := f.Extract(mdFile)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if doc.Title != "Introduction" {
		t.Errorf("Title = %q, want Introduction", doc.Title)
	}

	expectedTitles := []string{"Introduction", "Getting Started", "Prerequisites", "Advanced Topics"}
	if len(doc.Chapters) != len(expectedTitles) {
		t.Fatalf("Expected %d chapters, got %d", len(expectedTitles), len(doc.Chapters))
	}
	for i, ch := range doc.Chapters {
		if ch.Title != expectedTitles[i] {
			t.Errorf("Chapter %d: expected title %q, got %q", i, expectedTitles[i], ch.Title)
		}
	}

	// Offsets should be strictly increasing
	for i := 1; i < len(doc.Chapters); i++ {
		if doc.Chapters[i].Offset <= doc.Chapters[i-1].Offset {
			t.Errorf("Chapter %d offset %d not after %d", i, doc.Chapters[i].Offset, doc.Chapters[i-1].Offset)
		}
	}

	if strings.Contains(doc.Content, "**") || strings.Contains(doc.Content, "#") {
		t.Errorf("markdown syntax left in content: %q", doc.Content)
	}

	first := doc.ChapterText(0)
	if first != "Introduction\nThis is the introduction.\n" {
		t.Errorf("ChapterText(0) = %q", first)
	}
	last := doc.ChapterText(3)
	if last != "Advanced Topics\nMore complex stuff here." {
		t.Errorf("ChapterText(3) = %q", last)
	}
}

func TestMarkdownWithoutHeaders(t *testing.T) {
	doc, err := parseMarkdown([]byte("Just a paragraph.\n\nAnd another one."))
	if err != nil {
		t.Fatalf("parseMarkdown: %v", err)
	}
	if doc.Title != "" {
		t.Errorf("Title = %q, want empty", doc.Title)
	}
	if doc.ChapterCount() != 1 {
		t.Errorf("ChapterCount() = %d, want 1", doc.ChapterCount())
	}
	if doc.Content != "Just a paragraph.\nAnd another one." {
		t.Errorf("Content = %q", doc.Content)
	}
}
