//go:build gui

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/playback"
	"github.com/metcalfc/hetang/internal/reader"
	"github.com/metcalfc/hetang/internal/shelf"
	"github.com/metcalfc/hetang/internal/state"
)

// player is the focus playback state of the GUI.
type player struct {
	*playback.Scheduler
	app        *app
	book       shelf.Book
	doc        reader.Document
	chapter    int
	tocVisible bool
}

func newPlayer(a *app, b shelf.Book) *player {
	p := &player{
		app:  a,
		book: b,
		doc:  a.document(b),
	}
	p.Scheduler = playback.New(nil,
		playback.WithRate(a.cfg.Playback.Rate),
		playback.WithFloor(a.cfg.Playback.Floor()),
		playback.WithLogger(a.log),
	)
	return p
}

// loadChapter replaces the units with chapter i and seeks to unit.
func (p *player) loadChapter(i, unit int) {
	if i < 0 {
		i = 0
	}
	if n := p.doc.ChapterCount(); i >= n {
		i = n - 1
	}
	p.chapter = i
	p.SetUnits(reader.Segment(p.doc.ChapterText(i)))
	p.Seek(unit)
}

func (p *player) save() {
	s := p.State()
	p.app.savePosition(p.book, state.Position{
		Chapter:   p.chapter,
		Unit:      s.Index,
		Rate:      s.Rate,
		UpdatedAt: time.Now(),
	})
}

func (p *player) status() string {
	s := p.State()
	pause := ""
	switch {
	case s.Done() && !s.Playing:
		pause = " [COMPLETE]"
	case !s.Playing:
		pause = " [PAUSED]"
	}
	title := p.doc.ChapterTitle(p.chapter)
	if title == "" {
		title = p.book.Title
	}
	return fmt.Sprintf("%s | Sentence %d/%d | %d chars/s%s", title, s.Index+1, s.Total, s.Rate, pause)
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	rate := flag.Int("r", 0, "Focus playback rate in characters per second, 2-15")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	showTOC := flag.Bool("toc", false, "Show chapter list at startup")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Hetang - GUI Focus Reader\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  hetang-gui [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hetang-gui book.epub          Play a book\n")
		fmt.Fprintf(os.Stderr, "  hetang-gui -r 8 notes.md      Play at 8 characters per second\n")
		fmt.Fprintf(os.Stderr, "  hetang-gui --toc book.epub    Show chapter list at startup\n")
		fmt.Fprintf(os.Stderr, "  cat file.txt | hetang-gui     Read from stdin\n")
		fmt.Fprintf(os.Stderr, "  hetang-gui                    Play the first sample book\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("hetang-gui %s (commit: %s, built: %s)\n", version, commit, date)
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
	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = filepath.Join(state.Dir(), "hetang-gui.log")
	}
	a, err := newApp(cfg, logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	doc, ok, err := a.readInput(context.Background(), flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var book shelf.Book
	if ok {
		if strings.TrimSpace(doc.Content) == "" {
			fmt.Fprintln(os.Stderr, "Error: No text to read.")
			os.Exit(1)
		}
		if book, err = a.addDocument(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		books := a.shelf.List()
		if len(books) == 0 {
			fmt.Fprintln(os.Stderr, "Error: No input provided. Provide a file or pipe text to stdin.")
			os.Exit(1)
		}
		book = books[0]
	}

	p := newPlayer(a, book)
	chapter, unit := 0, 0
	if pos, found := a.position(book); found && !*freshStart {
		chapter, unit = pos.Chapter, pos.Unit
		if pos.Rate != 0 {
			p.SetRate(pos.Rate)
		}
	}
	p.loadChapter(chapter, unit)
	p.tocVisible = *showTOC && p.doc.ChapterCount() > 1

	fa := fyneapp.New()
	w := fa.NewWindow("hetang - Focus Reader")

	statusLabel := widget.NewLabel(p.status())
	statusLabel.Alignment = fyne.TextAlignCenter

	tocHint := ""
	if p.doc.ChapterCount() > 1 {
		tocHint = "  T: chapters"
	}
	controlsLabel := widget.NewLabel("SPACE: play/pause  ↑/↓: speed  ←/→: sentence  R: restart" + tocHint + "  F: fullscreen  Q: quit")
	controlsLabel.Alignment = fyne.TextAlignCenter

	previous := widget.NewLabel("")
	previous.Wrapping = fyne.TextWrapWord
	previous.Importance = widget.LowImportance

	current := widget.NewRichText(&widget.TextSegment{
		Style: widget.RichTextStyle{
			Alignment: fyne.TextAlignCenter,
			SizeName:  theme.SizeNameHeadingText,
			TextStyle: fyne.TextStyle{Bold: true},
		},
	})
	current.Wrapping = fyne.TextWrapWord

	next := widget.NewLabel("")
	next.Wrapping = fyne.TextWrapWord
	next.Importance = widget.LowImportance

	updateDisplay := func() {
		s := p.State()
		units := p.Units()
		previous.SetText("")
		next.SetText("")
		text := ""
		if s.Total > 0 {
			text = strings.TrimSpace(units[s.Index])
			if s.Index > 0 {
				previous.SetText(strings.TrimSpace(units[s.Index-1]))
			}
			if s.Index+1 < s.Total {
				next.SetText(strings.TrimSpace(units[s.Index+1]))
			}
		}
		seg := current.Segments[0].(*widget.TextSegment)
		seg.Text = text
		current.Refresh()
		statusLabel.SetText(p.status())
	}

	p.OnChange(func(playback.State) {
		fyne.Do(updateDisplay)
	})

	readingContent := container.NewBorder(
		statusLabel,
		controlsLabel,
		nil, nil,
		container.NewVBox(previous, current, next),
	)

	var tocPanel *container.Split
	mainContainer := container.NewStack(readingContent)
	if p.doc.ChapterCount() > 1 {
		tocList := widget.NewList(
			func() int { return p.doc.ChapterCount() },
			func() fyne.CanvasObject { return widget.NewLabel("Chapter") },
			func(id widget.ListItemID, obj fyne.CanvasObject) {
				obj.(*widget.Label).SetText(p.doc.ChapterTitle(id))
			},
		)
		tocContainer := container.NewBorder(
			widget.NewLabel("Chapters"),
			widget.NewLabel("Click to jump • T to close"),
			nil, nil,
			tocList,
		)
		tocPanel = container.NewHSplit(tocContainer, readingContent)
		tocPanel.Offset = 0.33
		tocList.OnSelected = func(id widget.ListItemID) {
			p.loadChapter(id, 0)
			p.tocVisible = false
			tocPanel.Leading.Hide()
			tocPanel.Refresh()
		}
		if !p.tocVisible {
			tocContainer.Hide()
		}
		mainContainer = container.NewStack(tocPanel)
	}

	var closeOnce sync.Once
	shutdown := func() {
		closeOnce.Do(func() {
			p.save()
			p.Close()
			a.log.Info("focus reader closed", zap.String("book", book.ID))
		})
	}

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace:
			p.Toggle()
		case fyne.KeyUp:
			p.SetRate(p.State().Rate + 1)
		case fyne.KeyDown:
			p.SetRate(p.State().Rate - 1)
		case fyne.KeyLeft:
			p.Prev()
		case fyne.KeyRight:
			p.Next()
		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())
		case fyne.KeyQ:
			shutdown()
			fa.Quit()
		}
	})

	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 't', 'T':
			if tocPanel == nil {
				return
			}
			p.tocVisible = !p.tocVisible
			if p.tocVisible {
				p.Pause()
				tocPanel.Leading.Show()
			} else {
				tocPanel.Leading.Hide()
			}
			tocPanel.Refresh()
		case 'r', 'R':
			p.Seek(0)
			a.clearPosition(book)
		case '+', '=':
			p.SetRate(p.State().Rate + 1)
		case '-':
			p.SetRate(p.State().Rate - 1)
		}
	})

	w.SetCloseIntercept(func() {
		shutdown()
		w.Close()
	})

	w.Resize(fyne.NewSize(800, 600))
	w.SetContent(mainContainer)
	updateDisplay()
	w.ShowAndRun()
	shutdown()
}
