// Package session applies the failure policy at the classifier boundary. Analysis
// and explanation failures degrade to usable output; only document import reports
// an error.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/classifier"
)

const (
	ExplanationUnavailable = "explanation unavailable"
	AnalysisFailed         = "Analysis failed."

	// SnippetLength bounds the context sent with an explanation request.
	SnippetLength = 500
)

// ErrParse is returned when a file cannot be turned into a document.
var ErrParse = errors.New("failed to parse document, try a different format or paste text manually")

// Cache stores explanations by term.
type Cache interface {
	Lookup(ctx context.Context, term string) (string, bool, error)
	Save(ctx context.Context, term, explanation string) error
}

// Result is the outcome of one analysis.
type Result struct {
	Revision uint64              `json:"revision"`
	Mode     classifier.Mode     `json:"mode"`
	Text     string              `json:"-"`
	Markup   string              `json:"markup"`
	Summary  string              `json:"summary,omitempty"`
	Keywords []string            `json:"keywords,omitempty"`
	Terms    classifier.Analysis `json:"terms"`
	Degraded bool                `json:"degraded"`
}

// Session pairs a classifier with the annotation engine.
type Session struct {
	classifier classifier.Classifier
	engine     *annotate.Engine
	cache      Cache
	rev        atomic.Uint64
	log        *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithCache caches explanations.
func WithCache(c Cache) Option {
	return func(s *Session) { s.cache = c }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Session. A nil engine uses the default character budget.
func New(c classifier.Classifier, engine *annotate.Engine, opts ...Option) *Session {
	s := &Session{classifier: c, engine: engine, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = annotate.NewEngine(0, s.log)
	}
	s.log = s.log.Named("session")
	return s
}

// Engine returns the annotation engine.
func (s *Session) Engine() *annotate.Engine { return s.engine }

// Analyze annotates text for mode. It never fails: when the classifier errors the
// result carries the sanitized text unannotated and Degraded is set.
func (s *Session) Analyze(ctx context.Context, text string, mode classifier.Mode, cfg annotate.HighlightConfig) Result {
	r := Result{
		Revision: s.rev.Add(1),
		Mode:     mode,
		Text:     s.engine.Truncate(text),
	}
	r.Terms.Normalize()

	if mode == classifier.ModeStandard || s.classifier == nil {
		r.Markup = annotate.Sanitize(r.Text)
		r.Degraded = mode != classifier.ModeStandard
		return r
	}

	a, err := s.classifier.Analyze(ctx, r.Text, mode)
	if err != nil {
		s.log.Warn("analysis failed", zap.String("mode", string(mode)), zap.Error(err))
		r.Markup = annotate.Sanitize(r.Text)
		r.Degraded = true
		if mode == classifier.ModeAnalytical {
			r.Summary = AnalysisFailed
		}
		return r
	}
	a.Normalize()
	r.Terms = a

	switch mode {
	case classifier.ModeCreative:
		r.Markup = s.engine.AnnotateCreative(r.Text, a.Creative(), cfg)
	case classifier.ModeAnalytical:
		r.Markup = s.engine.AnnotateAnalytical(r.Text, a.Analytical())
		r.Summary = a.Summary
		r.Keywords = a.Keywords
	default:
		r.Markup = annotate.Sanitize(r.Text)
	}
	return r
}

// Rehighlight recomputes creative markup for a new highlight configuration from the
// terms already in r. The classifier is not called.
func (s *Session) Rehighlight(r Result, cfg annotate.HighlightConfig) Result {
	if r.Mode != classifier.ModeCreative || r.Degraded {
		return r
	}
	r.Markup = s.engine.AnnotateCreative(r.Text, r.Terms.Creative(), cfg)
	return r
}

// Current reports whether rev is the latest analysis. Callers drop older results.
func (s *Session) Current(rev uint64) bool {
	return rev == s.rev.Load()
}

// Explain returns a short explanation of term seen in snippet, or
// ExplanationUnavailable.
func (s *Session) Explain(ctx context.Context, term, snippet string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ExplanationUnavailable
	}
	if s.cache != nil {
		if text, ok, err := s.cache.Lookup(ctx, term); err != nil {
			s.log.Warn("glossary lookup failed", zap.String("term", term), zap.Error(err))
		} else if ok {
			return text
		}
	}
	if s.classifier == nil {
		return ExplanationUnavailable
	}

	text, err := s.classifier.Explain(ctx, term, annotate.TruncateRunes(snippet, SnippetLength))
	if err != nil || strings.TrimSpace(text) == "" {
		s.log.Warn("explain failed", zap.String("term", term), zap.Error(err))
		return ExplanationUnavailable
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, term, text); err != nil {
			s.log.Warn("glossary save failed", zap.String("term", term), zap.Error(err))
		}
	}
	return text
}

// Import asks the classifier to recover a document from a file.
func (s *Session) Import(ctx context.Context, data []byte, mimeType string) (classifier.ParsedDocument, error) {
	if s.classifier == nil {
		return classifier.ParsedDocument{}, ErrParse
	}
	doc, err := s.classifier.ParseDocument(ctx, data, mimeType)
	if err != nil {
		s.log.Warn("parse failed", zap.String("mime", mimeType), zap.Error(err))
		return classifier.ParsedDocument{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return classifier.ParsedDocument{}, fmt.Errorf("%w: no text found", ErrParse)
	}
	doc.Normalize()
	return doc, nil
}
