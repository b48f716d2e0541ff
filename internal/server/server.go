// Package server exposes sanitizing, annotation, segmentation and the shelf over
// HTTP as JSON.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/classifier"
	"github.com/metcalfc/hetang/internal/glossary"
	"github.com/metcalfc/hetang/internal/reader"
	"github.com/metcalfc/hetang/internal/session"
	"github.com/metcalfc/hetang/internal/shelf"
)

const (
	maxBody = 8 << 20

	defaultGlossaryLimit = 50
	maxGlossaryLimit     = 500
)

// Server serves the HTTP API.
type Server struct {
	session   *session.Session
	shelf     *shelf.Shelf
	highlight annotate.HighlightConfig
	glossary  *glossary.Store
	log       *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithGlossary serves the cached explanations in g.
func WithGlossary(g *glossary.Store) Option {
	return func(s *Server) { s.glossary = g }
}

// New creates a Server. highlight is used when a request carries no settings.
func New(sess *session.Session, sh *shelf.Shelf, highlight annotate.HighlightConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sh == nil {
		sh = shelf.New()
	}
	s := &Server{session: sess, shelf: sh, highlight: highlight, log: logger.Named("server")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sanitize", s.handleSanitize)
		r.Post("/segment", s.handleSegment)
		r.Post("/annotate", s.handleAnnotate)
		r.With(middleware.Timeout(90*time.Second)).Post("/analyze", s.handleAnalyze)
		r.With(middleware.Timeout(90*time.Second)).Post("/explain", s.handleExplain)
		r.Get("/glossary", s.handleGlossary)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Post("/", s.handleCreateBook)
			r.With(middleware.Timeout(5*time.Minute)).Post("/import", s.handleImportBook)
			r.Get("/{id}", s.handleGetBook)
			r.Delete("/{id}", s.handleDeleteBook)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type markupResponse struct {
	Markup string `json:"markup"`
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, markupResponse{Markup: annotate.Sanitize(req.Text)})
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"units": reader.Segment(req.Text)})
}

type annotateRequest struct {
	Text      string                    `json:"text"`
	Mode      string                    `json:"mode"`
	Highlight *annotate.HighlightConfig `json:"highlight,omitempty"`
	annotate.CreativeTerms
	annotate.AnalyticalTerms
}

// handleAnnotate applies caller-supplied term sets without contacting the classifier.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if !decode(w, r, &req) {
		return
	}
	mode, err := classifier.ParseMode(req.Mode)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	engine := s.session.Engine()
	var markup string
	switch mode {
	case classifier.ModeCreative:
		markup = engine.AnnotateCreative(req.Text, req.CreativeTerms, s.highlightFor(req.Highlight))
	case classifier.ModeAnalytical:
		markup = engine.AnnotateAnalytical(req.Text, req.AnalyticalTerms)
	default:
		markup = engine.Plain(req.Text)
	}
	writeJSON(w, http.StatusOK, markupResponse{Markup: markup})
}

type analyzeRequest struct {
	Text      string                    `json:"text"`
	Mode      string                    `json:"mode"`
	Highlight *annotate.HighlightConfig `json:"highlight,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decode(w, r, &req) {
		return
	}
	mode, err := classifier.ParseMode(req.Mode)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	res := s.session.Analyze(r.Context(), req.Text, mode, s.highlightFor(req.Highlight))
	writeJSON(w, http.StatusOK, res)
}

type explainRequest struct {
	Term    string `json:"term"`
	Context string `json:"context"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "term is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"term":        req.Term,
		"explanation": s.session.Explain(r.Context(), req.Term, req.Context),
	})
}

// handleGlossary lists the most recently cached explanations. ?limit caps the count.
func (s *Server) handleGlossary(w http.ResponseWriter, r *http.Request) {
	limit := defaultGlossaryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxGlossaryLimit)
	}
	entries := []glossary.Entry{}
	if s.glossary != nil {
		recent, err := s.glossary.Recent(r.Context(), limit)
		if err != nil {
			s.log.Error("glossary", zap.Error(err))
			writeError(r.Context(), w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
		entries = append(entries, recent...)
	}
	writeJSON(w, http.StatusOK, map[string][]glossary.Entry{"entries": entries})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books := s.shelf.List()
	for i := range books {
		books[i].Content = ""
	}
	writeJSON(w, http.StatusOK, map[string][]shelf.Book{"books": books})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	b, err := s.shelf.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.shelfError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req shelf.Book
	if !decode(w, r, &req) {
		return
	}
	b, err := s.shelf.Add(req)
	if err != nil {
		s.shelfError(w, r, err)
		return
	}
	b.Content = ""
	writeJSON(w, http.StatusCreated, b)
}

type importRequest struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

func (s *Server) handleImportBook(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decode(w, r, &req) {
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil || len(data) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", "data must be non-empty base64")
		return
	}
	doc, err := s.session.Import(r.Context(), data, req.MimeType)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "parse_failed", err.Error())
		return
	}
	b, err := s.shelf.Add(shelf.Book{Title: doc.Title, Author: doc.Author, Content: doc.Content})
	if err != nil {
		s.shelfError(w, r, err)
		return
	}
	b.Content = ""
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.shelf.Delete(chi.URLParam(r, "id")); err != nil {
		s.shelfError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) shelfError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shelf.ErrNotFound):
		writeError(r.Context(), w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shelf.ErrEmpty):
		writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.log.Error("shelf", zap.Error(err))
		writeError(r.Context(), w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) highlightFor(h *annotate.HighlightConfig) annotate.HighlightConfig {
	if h == nil {
		return s.highlight
	}
	return *h
}
