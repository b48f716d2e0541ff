package annotate

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Category is the tag carried by every annotated span.
type Category string

const (
	ProperNoun Category = "proper"
	HotWord    Category = "hotword"
	Noun       Category = "noun"
	Verb       Category = "verb"
	Adjective  Category = "adj"
)

// Label returns the human readable name of a category.
func (c Category) Label() string {
	switch c {
	case ProperNoun:
		return "proper noun"
	case HotWord:
		return "key concept"
	case Noun:
		return "noun"
	case Verb:
		return "verb"
	case Adjective:
		return "adjective"
	}
	return "term"
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case ProperNoun, HotWord, Noun, Verb, Adjective:
		return true
	}
	return false
}

// Default colours. Analytical categories are fixed; creative ones are user defaults.
const (
	ProperNounColor = "#fef3c7"
	HotWordColor    = "#e0f2fe"
	NounColor       = "#f97316"
	VerbColor       = "#3b82f6"
	AdjectiveColor  = "#a855f7"

	properNounInk = "#92400e"
	hotWordInk    = "#075985"
)

// DefaultColor returns the colour used when none (or an invalid one) is configured.
func DefaultColor(c Category) string {
	switch c {
	case ProperNoun:
		return ProperNounColor
	case HotWord:
		return HotWordColor
	case Noun:
		return NounColor
	case Verb:
		return VerbColor
	case Adjective:
		return AdjectiveColor
	}
	return "#9ca3af"
}

// Ink returns the fixed text colour drawn over an analytical category's background,
// or "" for categories that keep the surrounding text colour.
func Ink(c Category) string {
	switch c {
	case ProperNoun:
		return properNounInk
	case HotWord:
		return hotWordInk
	}
	return ""
}

// ResolveColor normalises a hex colour to lowercase #rrggbb. Anything that does not
// parse as a hex colour is replaced by the category default, which keeps arbitrary
// user input out of the style attribute.
func ResolveColor(c Category, color string) string {
	col, err := colorful.Hex(strings.TrimSpace(color))
	if err != nil {
		return DefaultColor(c)
	}
	return col.Hex()
}

// style builds the inline style of a span. The colour must already be resolved.
func style(c Category, color string) string {
	switch c {
	case ProperNoun:
		return fmt.Sprintf("background-color: %s; color: %s; padding: 0px 4px; border-radius: 2px;", color, properNounInk)
	case HotWord:
		return fmt.Sprintf("background-color: %s; color: %s; padding: 0px 4px; border-radius: 2px;", color, hotWordInk)
	}
	// 0x4d alpha, roughly 30% opacity over the page colour.
	return fmt.Sprintf("background-color: %s4d; padding: 0px 4px; border-radius: 3px; color: inherit;", color)
}

// CategoryConfig is the per-category display setting of creative-reading mode.
type CategoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Color   string `yaml:"color" json:"color"`
}

// HighlightConfig holds the user-adjustable settings of creative-reading mode.
type HighlightConfig struct {
	Nouns      CategoryConfig `yaml:"nouns" json:"nouns"`
	Verbs      CategoryConfig `yaml:"verbs" json:"verbs"`
	Adjectives CategoryConfig `yaml:"adjectives" json:"adjectives"`
}

// DefaultHighlightConfig highlights nouns only.
func DefaultHighlightConfig() HighlightConfig {
	return HighlightConfig{
		Nouns:      CategoryConfig{Enabled: true, Color: NounColor},
		Verbs:      CategoryConfig{Enabled: false, Color: VerbColor},
		Adjectives: CategoryConfig{Enabled: false, Color: AdjectiveColor},
	}
}

// For returns the setting of a creative category. Other categories are reported disabled.
func (h HighlightConfig) For(c Category) CategoryConfig {
	switch c {
	case Noun:
		return h.Nouns
	case Verb:
		return h.Verbs
	case Adjective:
		return h.Adjectives
	}
	return CategoryConfig{}
}

// Toggle flips the enabled flag of a creative category.
func (h HighlightConfig) Toggle(c Category) HighlightConfig {
	switch c {
	case Noun:
		h.Nouns.Enabled = !h.Nouns.Enabled
	case Verb:
		h.Verbs.Enabled = !h.Verbs.Enabled
	case Adjective:
		h.Adjectives.Enabled = !h.Adjectives.Enabled
	}
	return h
}
