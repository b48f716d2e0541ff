package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/reader"
)

const (
	localKeywords = 5
	localHotWords = 10
)

// Local classifies Japanese text offline with a morphological analyzer. It cannot
// parse files or explain terms.
type Local struct {
	once     sync.Once
	tok      *tokenizer.Tokenizer
	err      error
	maxChars int
	log      *zap.Logger
}

// NewLocal creates a local classifier. The dictionary is loaded on first use.
func NewLocal(maxChars int, logger *zap.Logger) *Local {
	if maxChars <= 0 {
		maxChars = annotate.DefaultMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{maxChars: maxChars, log: logger.Named("local")}
}

func (l *Local) load() (*tokenizer.Tokenizer, error) {
	l.once.Do(func() {
		l.tok, l.err = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
		if l.err != nil {
			l.err = fmt.Errorf("failed to load dictionary: %w", l.err)
		}
	})
	return l.tok, l.err
}

func (l *Local) ParseDocument(context.Context, []byte, string) (ParsedDocument, error) {
	return ParsedDocument{}, ErrUnsupported
}

func (l *Local) Explain(context.Context, string, string) (string, error) {
	return "", ErrUnsupported
}

// morpheme is a token with its IPA part of speech (features 0 and 1).
type morpheme struct {
	surface string
	pos     string
	sub     string
}

func (l *Local) morphemes(text string) ([]morpheme, error) {
	t, err := l.load()
	if err != nil {
		return nil, err
	}
	var out []morpheme
	for _, token := range t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		features := token.Features()
		m := morpheme{surface: token.Surface}
		if len(features) > 0 {
			m.pos = features[0]
		}
		if len(features) > 1 {
			m.sub = features[1]
		}
		out = append(out, m)
	}
	return out, nil
}

// Analyze tags at most maxChars runes of text. Creative mode collects noun, verb and
// adjective surfaces. Analytical mode takes proper nouns from the dictionary tags
// and ranks general nouns by frequency for keywords and hot-words.
func (l *Local) Analyze(ctx context.Context, text string, mode Mode) (Analysis, error) {
	var a Analysis
	if mode == ModeStandard {
		a.Normalize()
		return a, nil
	}
	if err := ctx.Err(); err != nil {
		return a, err
	}
	text = annotate.TruncateRunes(text, l.maxChars)
	ms, err := l.morphemes(text)
	if err != nil {
		return a, err
	}

	switch mode {
	case ModeCreative:
		var nouns, verbs, adjs uniqueList
		for _, m := range ms {
			switch m.pos {
			case "名詞":
				if m.sub != "数" && m.sub != "代名詞" && m.sub != "非自立" {
					nouns.add(m.surface)
				}
			case "動詞":
				verbs.add(m.surface)
			case "形容詞":
				adjs.add(m.surface)
			}
		}
		a.Nouns, a.Verbs, a.Adjectives = nouns.items, verbs.items, adjs.items
	case ModeAnalytical:
		var proper uniqueList
		counts := make(map[string]int)
		var order []string
		for _, m := range ms {
			if m.pos != "名詞" {
				continue
			}
			switch m.sub {
			case "固有名詞":
				proper.add(m.surface)
			case "一般", "サ変接続":
				if utf8.RuneCountInString(m.surface) < annotate.MinTermLength {
					continue
				}
				if counts[m.surface] == 0 {
					order = append(order, m.surface)
				}
				counts[m.surface]++
			}
		}
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		a.ProperNouns = proper.items
		a.Keywords = head(order, localKeywords)
		a.HotWords = head(order, localHotWords)
		if units := reader.Segment(text); len(units) > 0 {
			a.Summary = units[0]
		}
	default:
		return a, fmt.Errorf("unknown mode %q", mode)
	}
	l.log.Debug("analyzed", zap.String("mode", string(mode)), zap.Int("morphemes", len(ms)))
	a.Normalize()
	return a, nil
}

type uniqueList struct {
	seen  map[string]bool
	items []string
}

func (u *uniqueList) add(s string) {
	if u.seen == nil {
		u.seen = make(map[string]bool)
	}
	if !u.seen[s] {
		u.seen[s] = true
		u.items = append(u.items, s)
	}
}

func head(s []string, n int) []string {
	if len(s) > n {
		return append([]string(nil), s[:n]...)
	}
	return append([]string(nil), s...)
}
