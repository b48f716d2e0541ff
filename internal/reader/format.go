package reader

import (
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Format reads one kind of file into a Document.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string) (Document, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Lookup returns the registered format for a file name, if any.
func Lookup(filename string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f, true
			}
		}
	}
	return nil, false
}

// Supported reports whether a file can be read locally. Plain text is always supported.
func Supported(filename string) bool {
	if _, ok := Lookup(filename); ok {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", "":
		return true
	}
	return false
}

// Extract reads a file using a registered format, falling back to plain text.
func Extract(filename string) (Document, error) {
	if f, ok := Lookup(filename); ok {
		doc, err := f.Extract(filename)
		if err != nil {
			return Document{}, err
		}
		if doc.Title == "" {
			doc.Title = titleFromName(filename)
		}
		return doc, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Title:   titleFromName(filename),
		Content: strings.ReplaceAll(string(data), "\r\n", "\n"),
	}, nil
}

// MimeType guesses the MIME type of a file from its extension.
func MimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".epub":
		return "application/epub+zip"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

func titleFromName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
