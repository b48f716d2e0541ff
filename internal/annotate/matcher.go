package annotate

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// MinTermLength is the shortest term, in characters, that is ever highlighted.
const MinTermLength = 2

// Matcher places terms into sanitized markup.
type Matcher struct {
	log *zap.Logger
}

// NewMatcher returns a Matcher. A nil logger disables logging.
func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{log: logger}
}

var defaultMatcher = NewMatcher(nil)

// Apply wraps every free occurrence of terms in safeText with a span of category c.
// See Matcher.Apply.
func Apply(safeText string, terms []string, c Category, color string) string {
	return defaultMatcher.Apply(safeText, terms, c, color)
}

// Apply wraps every occurrence of terms in safeText that is not already inside a
// span. Longer terms are placed first. ASCII terms only match on word boundaries;
// terms containing other characters match anywhere. Matching ignores case.
// Running Apply again with the same arguments does not change its output.
func (m *Matcher) Apply(safeText string, terms []string, c Category, color string) string {
	d := parse(safeText)
	m.apply(d, terms, c, ResolveColor(c, color))
	return d.render()
}

func (m *Matcher) apply(d *document, terms []string, c Category, color string) int {
	total := 0
	for _, term := range PrepareTerms(terms) {
		re, err := compileTerm(term)
		if err != nil {
			m.log.Debug("skipping term", zap.String("term", term), zap.String("category", string(c)), zap.Error(err))
			continue
		}
		total += d.wrap(re, c, color)
	}
	return total
}

// PrepareTerms trims terms, drops those shorter than MinTermLength, removes
// duplicates that differ only in case or Unicode normalisation form and orders
// the rest longest first. Terms of equal length keep their input order.
func PrepareTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		composed := norm.NFC.String(t)
		if utf8.RuneCountInString(composed) < MinTermLength || strings.ContainsRune(t, '\n') {
			continue
		}
		key := strings.ToLower(composed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(norm.NFC.String(out[i])) > utf8.RuneCountInString(norm.NFC.String(out[j]))
	})
	return out
}

// compileTerm matches term in its given, composed and decomposed forms, so text in
// either normalisation form is found.
func compileTerm(term string) (*regexp.Regexp, error) {
	if isASCII(term) {
		return regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	}
	var forms []string
	for _, f := range []string{term, norm.NFC.String(term), norm.NFD.String(term)} {
		f = regexp.QuoteMeta(f)
		if !slices.Contains(forms, f) {
			forms = append(forms, f)
		}
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(forms, "|") + `)`)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
