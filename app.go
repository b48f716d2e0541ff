package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/classifier"
	"github.com/metcalfc/hetang/internal/config"
	"github.com/metcalfc/hetang/internal/glossary"
	"github.com/metcalfc/hetang/internal/logging"
	"github.com/metcalfc/hetang/internal/reader"
	"github.com/metcalfc/hetang/internal/session"
	"github.com/metcalfc/hetang/internal/shelf"
	"github.com/metcalfc/hetang/internal/state"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds the components shared by the terminal and GUI front ends.
type app struct {
	cfg      *config.AppConfig
	log      *zap.Logger
	session  *session.Session
	shelf    *shelf.Shelf
	states   *state.Store
	glossary *glossary.Store

	mu   sync.Mutex
	docs map[string]reader.Document // chapter structure of imported books, by book ID
}

// loadConfig reads .env and the YAML config. An empty path uses the default locations.
func loadConfig(path string) (*config.AppConfig, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// newApp wires the application. logOutput overrides the configured log path.
func newApp(cfg *config.AppConfig, logOutput string) (*app, error) {
	if logOutput == "" {
		logOutput = cfg.Log.Path
	}
	logger, err := logging.New(cfg.Log.Level, logOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cls, err := newClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("classifier ready", zap.String("type", fmt.Sprintf("%T", cls)))

	opts := []session.Option{session.WithLogger(logger)}
	gl, err := glossary.Open(glossaryPath(cfg.Glossary.Path), logger)
	if err != nil {
		logger.Warn("glossary unavailable, explanations will not be cached", zap.Error(err))
	} else {
		opts = append(opts, session.WithCache(gl))
	}

	store, err := state.NewStore()
	if err != nil {
		logger.Warn("state store unavailable, positions will not be saved", zap.Error(err))
	}

	return &app{
		cfg:      cfg,
		log:      logger,
		session:  session.New(cls, annotate.NewEngine(cfg.Annotation.MaxChars, logger), opts...),
		shelf:    shelf.NewWithSamples(),
		states:   store,
		glossary: gl,
		docs:     make(map[string]reader.Document),
	}, nil
}

// newClassifier picks the classifier named in the config. "auto" uses Gemini when its
// API key is set and the offline analyzer otherwise.
func newClassifier(cfg *config.AppConfig, logger *zap.Logger) (classifier.Classifier, error) {
	g := cfg.Classifier.Gemini
	gcfg := classifier.GeminiConfig{
		BaseURL:    g.BaseURL,
		Model:      g.Model,
		APIKeyEnv:  g.APIKeyEnv,
		Timeout:    g.Timeout(),
		MaxRetries: g.MaxRetries,
		MaxChars:   cfg.Annotation.MaxChars,
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Classifier.Type)) {
	case "gemini":
		return classifier.NewGemini(gcfg, logger)
	case "local":
		return classifier.NewLocal(cfg.Annotation.MaxChars, logger), nil
	case "auto", "":
		if os.Getenv(gcfg.APIKeyEnv) != "" {
			return classifier.NewGemini(gcfg, logger)
		}
		return classifier.NewLocal(cfg.Annotation.MaxChars, logger), nil
	}
	return nil, fmt.Errorf("unknown classifier type %q", cfg.Classifier.Type)
}

func glossaryPath(p string) string {
	if p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(state.Dir(), p)
}

func (a *app) close() {
	if a.glossary != nil {
		if err := a.glossary.Close(); err != nil {
			a.log.Warn("failed to close glossary", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// importFile reads a file into a document. Formats without a local reader are
// handed to the classifier.
func (a *app) importFile(ctx context.Context, filename string) (reader.Document, error) {
	if reader.Supported(filename) {
		return reader.Extract(filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return reader.Document{}, err
	}
	parsed, err := a.session.Import(ctx, data, reader.MimeType(filename))
	if err != nil {
		return reader.Document{}, err
	}
	return reader.Document{Title: parsed.Title, Author: parsed.Author, Content: parsed.Content}, nil
}

// addDocument puts doc on the shelf and remembers its chapters.
func (a *app) addDocument(doc reader.Document) (shelf.Book, error) {
	b, err := a.shelf.Add(shelf.Book{Title: doc.Title, Author: doc.Author, Content: doc.Content})
	if err != nil {
		return shelf.Book{}, err
	}
	a.mu.Lock()
	a.docs[b.ID] = doc
	a.mu.Unlock()
	return b, nil
}

// document returns the chapter structure of a book.
func (a *app) document(b shelf.Book) reader.Document {
	a.mu.Lock()
	doc, ok := a.docs[b.ID]
	a.mu.Unlock()
	if ok {
		return doc
	}
	return reader.Document{Title: b.Title, Author: b.Author, Content: b.Content}
}

func (a *app) deleteBook(id string) error {
	if err := a.shelf.Delete(id); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.docs, id)
	a.mu.Unlock()
	return nil
}

// position returns the saved position of a book.
func (a *app) position(b shelf.Book) (state.Position, bool) {
	if a.states == nil {
		return state.Position{}, false
	}
	return a.states.Get(state.HashContent(b.Content))
}

func (a *app) savePosition(b shelf.Book, p state.Position) {
	if a.states == nil || b.ID == "" {
		return
	}
	if err := a.states.Set(state.HashContent(b.Content), p); err != nil {
		a.log.Warn("failed to save position", zap.String("book", b.ID), zap.Error(err))
	}
}

func (a *app) clearPosition(b shelf.Book) {
	if a.states == nil {
		return
	}
	if err := a.states.Clear(state.HashContent(b.Content)); err != nil {
		a.log.Warn("failed to clear position", zap.String("book", b.ID), zap.Error(err))
	}
}

// readInput reads the book named on the command line, or stdin when no file is
// given and stdin is not a terminal. ok is false when there is no input.
func (a *app) readInput(ctx context.Context, args []string) (doc reader.Document, ok bool, err error) {
	if len(args) > 0 {
		doc, err = a.importFile(ctx, args[0])
		if err != nil {
			return reader.Document{}, false, fmt.Errorf("failed to read file '%s': %w", args[0], err)
		}
		return doc, true, nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return reader.Document{}, false, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return reader.Document{}, false, fmt.Errorf("error reading stdin: %w", err)
	}
	return reader.Document{Title: "stdin", Content: strings.ReplaceAll(string(data), "\r\n", "\n")}, true, nil
}
