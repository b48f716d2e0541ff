//go:build !gui

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/classifier"
	"github.com/metcalfc/hetang/internal/config"
	"github.com/metcalfc/hetang/internal/playback"
	"github.com/metcalfc/hetang/internal/reader"
	"github.com/metcalfc/hetang/internal/server"
	"github.com/metcalfc/hetang/internal/state"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./hetang.yaml or ~/.config/hetang/config.yaml)")
	rate := flag.Int("r", 0, "Focus playback rate in characters per second, 2-15 (default: from config)")
	modeName := flag.String("m", "standard", "Reading mode: standard, creative or analytical")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Hetang - Terminal E-Reader\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  hetang [options] [file]\n")
		fmt.Fprintf(os.Stderr, "  hetang serve [-addr host:port]\n")
		fmt.Fprintf(os.Stderr, "  hetang import [-json] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSupported formats: %s, plain text\n", strings.Join(reader.SupportedFormats(), ", "))
		fmt.Fprintf(os.Stderr, "Other formats (such as PDF) are parsed by the Gemini classifier.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hetang                    Open the shelf\n")
		fmt.Fprintf(os.Stderr, "  hetang book.epub          Open a book\n")
		fmt.Fprintf(os.Stderr, "  hetang -m creative a.md   Open a book with creative highlights\n")
		fmt.Fprintf(os.Stderr, "  cat file.txt | hetang     Read from stdin\n")
		fmt.Fprintf(os.Stderr, "  hetang serve              Serve the HTTP API\n")
		fmt.Fprintf(os.Stderr, "\nReader controls:\n")
		fmt.Fprintf(os.Stderr, "  1/2/3    Standard/creative/analytical mode\n")
		fmt.Fprintf(os.Stderr, "  N/V/A    Toggle noun/verb/adjective highlights\n")
		fmt.Fprintf(os.Stderr, "  TAB      Select next term, ENTER to explain it\n")
		fmt.Fprintf(os.Stderr, "  ←/→      Previous/next page, [/] previous/next chapter\n")
		fmt.Fprintf(os.Stderr, "  F        Focus playback\n")
		fmt.Fprintf(os.Stderr, "\nFocus controls:\n")
		fmt.Fprintf(os.Stderr, "  SPACE    Pause/play\n")
		fmt.Fprintf(os.Stderr, "  ↑/↓      Increase/decrease speed by 1 char/s\n")
		fmt.Fprintf(os.Stderr, "  ←/→      Jump to previous/next sentence\n")
		fmt.Fprintf(os.Stderr, "  Q        Quit\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("hetang %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *rate != 0 {
		cfg.Playback.Rate = playback.ClampRate(*rate)
	}

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			if err := runServe(cfg, args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "import":
			if err := runImport(cfg, args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	mode, err := classifier.ParseMode(*modeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The alternate screen owns the terminal, so logs go to a file.
	logPath := cfg.Log.Path
	if logPath == "" || logPath == "stdout" || logPath == "stderr" {
		logPath = filepath.Join(state.Dir(), "hetang.log")
	}
	a, err := newApp(cfg, logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	doc, ok, err := a.readInput(context.Background(), args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var m tea.Model = newModel(a, mode, *freshStart)
	if ok {
		if strings.TrimSpace(doc.Content) == "" {
			fmt.Fprintln(os.Stderr, "Error: No text to read.")
			os.Exit(1)
		}
		b, err := a.addDocument(doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opened := newModel(a, mode, *freshStart)
		opened.books = a.shelf.List()
		opened.cursor = len(opened.books) - 1
		m, _ = opened.open(b)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Server.Addr, "Address to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(cfg, "")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []server.Option
	if a.glossary != nil {
		opts = append(opts, server.WithGlossary(a.glossary))
	}
	srv := server.New(a.session, a.shelf, cfg.Highlight, a.log, opts...)
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		a.log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

type importedDocument struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Chapters []string `json:"chapters,omitempty"`
	Content  string   `json:"content"`
}

// runImport converts a file to plain text on stdout.
func runImport(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print title, author, chapters and content as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no file given")
	}

	a, err := newApp(cfg, "")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := a.importFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if !*asJSON {
		_, err = fmt.Fprintln(os.Stdout, doc.Content)
		return err
	}
	out := importedDocument{Title: doc.Title, Author: doc.Author, Content: doc.Content}
	for i := range doc.Chapters {
		out.Chapters = append(out.Chapters, doc.ChapterTitle(i))
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
