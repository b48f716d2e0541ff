package annotate

import (
	"go.uber.org/zap"
)

// DefaultMaxChars bounds how much text is annotated per call.
const DefaultMaxChars = 4500

// CreativeTerms are the grammatical term sets of creative-reading mode.
type CreativeTerms struct {
	Nouns      []string `json:"nouns"`
	Verbs      []string `json:"verbs"`
	Adjectives []string `json:"adjectives"`
}

// AnalyticalTerms are the term sets of analytical mode.
type AnalyticalTerms struct {
	ProperNouns []string `json:"properNouns"`
	HotWords    []string `json:"topicHotWords"`
}

// Engine annotates a bounded prefix of a text for one reading mode at a time.
// Every call starts from the raw text; nothing is carried between calls.
type Engine struct {
	maxChars int
	matcher  *Matcher
	log      *zap.Logger
}

// NewEngine returns an Engine annotating at most maxChars characters.
// maxChars <= 0 selects DefaultMaxChars.
func NewEngine(maxChars int, logger *zap.Logger) *Engine {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{maxChars: maxChars, matcher: NewMatcher(logger), log: logger}
}

// MaxChars returns the character budget.
func (e *Engine) MaxChars() int { return e.maxChars }

// Truncate returns the first MaxChars characters of text.
func (e *Engine) Truncate(text string) string {
	return TruncateRunes(text, e.maxChars)
}

// Plain returns the sanitized, unannotated prefix of text.
func (e *Engine) Plain(text string) string {
	return Sanitize(e.Truncate(text))
}

// AnnotateCreative highlights nouns, then verbs, then adjectives, skipping
// categories that are disabled in cfg.
func (e *Engine) AnnotateCreative(text string, terms CreativeTerms, cfg HighlightConfig) string {
	d := parse(e.Plain(text))
	passes := []struct {
		c     Category
		terms []string
	}{
		{Noun, terms.Nouns},
		{Verb, terms.Verbs},
		{Adjective, terms.Adjectives},
	}
	for _, p := range passes {
		set := cfg.For(p.c)
		if !set.Enabled || len(p.terms) == 0 {
			continue
		}
		n := e.matcher.apply(d, p.terms, p.c, ResolveColor(p.c, set.Color))
		e.log.Debug("annotated category", zap.String("category", string(p.c)), zap.Int("spans", n))
	}
	return d.render()
}

// AnnotateAnalytical places proper nouns before hot-words, so a proper noun claims
// any region a hot-word would also match.
func (e *Engine) AnnotateAnalytical(text string, terms AnalyticalTerms) string {
	d := parse(e.Plain(text))
	n := e.matcher.apply(d, terms.ProperNouns, ProperNoun, ProperNounColor)
	h := e.matcher.apply(d, terms.HotWords, HotWord, HotWordColor)
	e.log.Debug("annotated analytical", zap.Int("proper", n), zap.Int("hotword", h))
	return d.render()
}

// TruncateRunes returns the first n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
