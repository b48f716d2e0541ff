// Package classifier is the boundary to the service that extracts terms, summaries and
// explanations from text. The annotation core only ever sees its results as plain
// string lists.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/metcalfc/hetang/internal/annotate"
)

// Mode selects how a text is analyzed.
type Mode string

const (
	ModeStandard   Mode = "standard"
	ModeCreative   Mode = "creative"
	ModeAnalytical Mode = "analytical"
)

// ParseMode accepts a mode name. "novel" and "paper" are accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "plain":
		return ModeStandard, nil
	case "creative", "novel":
		return ModeCreative, nil
	case "analytical", "paper":
		return ModeAnalytical, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

var (
	ErrUnsupported   = errors.New("operation not supported by classifier")
	ErrNoAPIKey      = errors.New("classifier API key not set")
	ErrEmptyResponse = errors.New("classifier returned an empty response")
)

const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// ParsedDocument is a document recovered from an uploaded file.
type ParsedDocument struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Normalize fills in placeholder title and author.
func (d *ParsedDocument) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	if d.Title == "" {
		d.Title = UnknownTitle
	}
	if d.Author == "" {
		d.Author = UnknownAuthor
	}
}

// Analysis holds the term sets for one text. Creative mode fills the part-of-speech
// lists; analytical mode fills the rest.
type Analysis struct {
	Nouns      []string `json:"nouns"`
	Verbs      []string `json:"verbs"`
	Adjectives []string `json:"adjectives"`

	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords"`
	ProperNouns []string `json:"properNouns"`
	HotWords    []string `json:"topicHotWords"`
}

// Normalize replaces missing lists with empty ones and drops blank entries.
func (a *Analysis) Normalize() {
	a.Nouns = cleanList(a.Nouns)
	a.Verbs = cleanList(a.Verbs)
	a.Adjectives = cleanList(a.Adjectives)
	a.Keywords = cleanList(a.Keywords)
	a.ProperNouns = cleanList(a.ProperNouns)
	a.HotWords = cleanList(a.HotWords)
	a.Summary = strings.TrimSpace(a.Summary)
}

// Creative returns the part-of-speech term sets.
func (a Analysis) Creative() annotate.CreativeTerms {
	return annotate.CreativeTerms{Nouns: a.Nouns, Verbs: a.Verbs, Adjectives: a.Adjectives}
}

// Analytical returns the proper-noun and hot-word term sets.
func (a Analysis) Analytical() annotate.AnalyticalTerms {
	return annotate.AnalyticalTerms{ProperNouns: a.ProperNouns, HotWords: a.HotWords}
}

// Classifier extracts terms and explanations from text.
type Classifier interface {
	// ParseDocument recovers text, title and author from a file's bytes.
	ParseDocument(ctx context.Context, data []byte, mimeType string) (ParsedDocument, error)
	// Analyze returns the term sets for text in the given mode.
	Analyze(ctx context.Context, text string, mode Mode) (Analysis, error)
	// Explain describes term in a few sentences, using snippet as context.
	Explain(ctx context.Context, term, snippet string) (string, error)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// decodeObject splits a JSON object into its raw fields. Only input that is not an
// object at all is an error.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

// stringField returns fields[key] as a string, or "" when it is missing or not a
// string.
func stringField(fields map[string]json.RawMessage, key string) string {
	var s string
	if raw, ok := fields[key]; ok {
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
	}
	return s
}

// listField returns the string elements of fields[key]. Elements of other types are
// skipped; a value that is not an array yields nil.
func listField(fields map[string]json.RawMessage, key string) []string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

// decodeAnalysis reads an analysis field by field so one malformed field does not
// discard the others.
func decodeAnalysis(data []byte) (Analysis, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Analysis{}, err
	}
	a := Analysis{
		Nouns:       listField(fields, "nouns"),
		Verbs:       listField(fields, "verbs"),
		Adjectives:  listField(fields, "adjectives"),
		Summary:     stringField(fields, "summary"),
		Keywords:    listField(fields, "keywords"),
		ProperNouns: listField(fields, "properNouns"),
		HotWords:    listField(fields, "topicHotWords"),
	}
	a.Normalize()
	return a, nil
}

// decodeParsedDocument reads a parsed document field by field.
func decodeParsedDocument(data []byte) (ParsedDocument, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return ParsedDocument{}, err
	}
	d := ParsedDocument{
		Title:   stringField(fields, "title"),
		Author:  stringField(fields, "author"),
		Content: stringField(fields, "content"),
	}
	d.Normalize()
	return d, nil
}
