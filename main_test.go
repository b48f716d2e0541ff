//go:build !gui

package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/classifier"
	"github.com/metcalfc/hetang/internal/config"
	"github.com/metcalfc/hetang/internal/reader"
	"github.com/metcalfc/hetang/internal/session"
	"github.com/metcalfc/hetang/internal/shelf"
	"github.com/metcalfc/hetang/internal/state"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	store, err := state.Open(t.TempDir())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	cfg := config.Default()
	return &app{
		cfg:     cfg,
		log:     zap.NewNop(),
		session: session.New(nil, annotate.NewEngine(cfg.Annotation.MaxChars, nil)),
		shelf:   shelf.New(),
		states:  store,
		docs:    make(map[string]reader.Document),
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m model, keys ...string) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(model)
	}
	return m, cmd
}

// collect runs cmd and returns its messages, expanding batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func analysisOf(msgs []tea.Msg) (analysisMsg, bool) {
	for _, msg := range msgs {
		if a, ok := msg.(analysisMsg); ok {
			return a, true
		}
	}
	return analysisMsg{}, false
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		units      []string
		limit      int
		wantPages  []string
		wantStarts []int
	}{
		{
			name:       "fits on one page",
			units:      []string{"One.", " Two."},
			limit:      100,
			wantPages:  []string{"One. Two."},
			wantStarts: []int{0},
		},
		{
			name:       "splits at unit boundary",
			units:      []string{"aaaa.", "bbbb.", "cc."},
			limit:      10,
			wantPages:  []string{"aaaa.bbbb.", "cc."},
			wantStarts: []int{0, 2},
		},
		{
			name:       "long unit is cut into pages of its own",
			units:      []string{"a.", "bbbbbbbbbbbb.", "c."},
			limit:      5,
			wantPages:  []string{"a.", "bbbbb", "bbbbb", "bbb.", "c."},
			wantStarts: []int{0, 1, 1, 1, 2},
		},
		{
			name:       "counts characters not bytes",
			units:      []string{"荷塘月色。", "曲曲折折。"},
			limit:      10,
			wantPages:  []string{"荷塘月色。曲曲折折。"},
			wantStarts: []int{0},
		},
		{
			name:  "no units",
			units: nil,
			limit: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, starts := paginate(tt.units, tt.limit)
			if strings.Join(pages, "|") != strings.Join(tt.wantPages, "|") {
				t.Errorf("pages = %q, want %q", pages, tt.wantPages)
			}
			if len(starts) != len(tt.wantStarts) {
				t.Fatalf("starts = %v, want %v", starts, tt.wantStarts)
			}
			for i := range starts {
				if starts[i] != tt.wantStarts[i] {
					t.Errorf("starts = %v, want %v", starts, tt.wantStarts)
				}
			}
		})
	}
}

func TestPaginateShowsOversizedUnitInFull(t *testing.T) {
	engine := annotate.NewEngine(annotate.DefaultMaxChars, nil)
	unit := strings.Repeat("荷", 6000)
	pages, starts := paginate([]string{unit}, engine.MaxChars())
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	var shown strings.Builder
	for _, p := range pages {
		shown.WriteString(engine.Plain(p))
	}
	if got := utf8.RuneCountInString(shown.String()); got != 6000 {
		t.Errorf("rendered %d runes, want 6000", got)
	}
	if starts[0] != 0 || starts[1] != 0 {
		t.Errorf("starts = %v, want [0 0]", starts)
	}
}

func TestPageOf(t *testing.T) {
	starts := []int{0, 3, 7}
	tests := []struct {
		unit int
		want int
	}{
		{0, 0}, {2, 0}, {3, 1}, {6, 1}, {7, 2}, {100, 2},
	}
	for _, tt := range tests {
		if got := pageOf(starts, tt.unit); got != tt.want {
			t.Errorf("pageOf(%d) = %d, want %d", tt.unit, got, tt.want)
		}
	}

	// a unit cut across pages 1-3 maps to the first of them
	split := []int{0, 1, 1, 1, 2}
	if got := pageOf(split, 1); got != 1 {
		t.Errorf("pageOf(split, 1) = %d, want 1", got)
	}
	if got := pageOf(split, 2); got != 4 {
		t.Errorf("pageOf(split, 2) = %d, want 4", got)
	}
}

func TestRenderMarkup(t *testing.T) {
	markup := annotate.Apply(annotate.Sanitize("Hello moon\nbye"), []string{"moon"}, annotate.Noun, annotate.NounColor)
	pieces := annotate.Pieces(markup)
	terms := termIndexes(pieces)
	if len(terms) != 1 {
		t.Fatalf("termIndexes() = %v, want one term", terms)
	}

	out := renderMarkup(pieces, terms[0], 80)
	for _, want := range []string{"Hello", "moon", "bye"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderMarkup() = %q, missing %q", out, want)
		}
	}
	if strings.Contains(out, "<") {
		t.Errorf("renderMarkup() leaked markup: %q", out)
	}
	// The newline becomes two breaks: a blank line between paragraphs.
	if lines := strings.Split(out, "\n"); len(lines) != 3 {
		t.Errorf("renderMarkup() has %d lines, want 3: %q", len(lines), out)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
	}{
		{"words", "the quick brown fox jumps over the lazy dog", 10},
		{"cjk without spaces", "荷塘月色曲曲折折的荷塘上面弥望的是田田的叶子", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := wrapText(tt.text, tt.width)
			for _, line := range strings.Split(out, "\n") {
				if w := lipgloss.Width(line); w > tt.width {
					t.Errorf("line %q is %d cells wide, limit %d", line, w, tt.width)
				}
			}
			if strings.ReplaceAll(strings.ReplaceAll(out, "\n", ""), " ", "") !=
				strings.ReplaceAll(tt.text, " ", "") {
				t.Errorf("wrapText() lost text: %q", out)
			}
		})
	}
}

func TestRenderUnits(t *testing.T) {
	units := []string{"one.", "two.", "three.", "four.", "five.", "six.", "seven."}
	out := renderUnits(units, 3, 40, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("renderUnits() = %d lines, want 3: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], "four.") {
		t.Errorf("active unit not centred: %q", lines)
	}

	if got := renderUnits(nil, 0, 40, 3); got != "" {
		t.Errorf("renderUnits(nil) = %q, want empty", got)
	}
}

func TestNextMode(t *testing.T) {
	mode := classifier.ModeStandard
	want := []classifier.Mode{classifier.ModeCreative, classifier.ModeAnalytical, classifier.ModeStandard}
	for _, w := range want {
		mode = nextMode(mode)
		if mode != w {
			t.Fatalf("nextMode() = %q, want %q", mode, w)
		}
	}
}

func TestModelOpenBook(t *testing.T) {
	a := newTestApp(t)
	b, err := a.addDocument(reader.Document{Title: "Notes", Content: "One. Two. Three."})
	if err != nil {
		t.Fatalf("addDocument: %v", err)
	}

	m := newModel(a, classifier.ModeStandard, false)
	m, _ = press(t, m, "enter")
	if m.view != readerView {
		t.Fatalf("view = %v, want reader", m.view)
	}
	if m.book.ID != b.ID {
		t.Errorf("opened %q, want %q", m.book.ID, b.ID)
	}
	if len(m.units) != 3 || len(m.pages) != 1 {
		t.Errorf("units = %q, pages = %q", m.units, m.pages)
	}
	if m.result.Markup != "One. Two. Three." {
		t.Errorf("markup = %q", m.result.Markup)
	}
	if !strings.Contains(m.View(), "Page 1/1") {
		t.Errorf("View() missing page status:\n%s", m.View())
	}
}

func TestModelFocusSavesPosition(t *testing.T) {
	a := newTestApp(t)
	b, err := a.addDocument(reader.Document{Title: "Notes", Content: "One. Two. Three."})
	if err != nil {
		t.Fatalf("addDocument: %v", err)
	}

	m := newModel(a, classifier.ModeStandard, false)
	m, _ = press(t, m, "enter", "f")
	if m.view != focusView || m.player == nil {
		t.Fatalf("focus did not start: view = %v", m.view)
	}
	if m.play.Total != 3 {
		t.Errorf("Total = %d, want 3", m.play.Total)
	}

	m, _ = press(t, m, "right", "right", "+")
	if m.play.Index != 2 {
		t.Errorf("Index = %d, want 2", m.play.Index)
	}
	if m.play.Rate != a.cfg.Playback.Rate+1 {
		t.Errorf("Rate = %d, want %d", m.play.Rate, a.cfg.Playback.Rate+1)
	}
	if !strings.Contains(m.View(), "Sentence 3/3") {
		t.Errorf("View() missing progress:\n%s", m.View())
	}

	m, _ = press(t, m, "esc")
	if m.view != readerView || m.player != nil {
		t.Fatalf("focus did not stop: view = %v", m.view)
	}
	pos, ok := a.position(b)
	if !ok {
		t.Fatal("position not saved")
	}
	if pos.Unit != 2 || pos.Rate != a.cfg.Playback.Rate+1 {
		t.Errorf("saved %+v", pos)
	}

	// Reopening restores the rate.
	again := newModel(a, classifier.ModeStandard, false)
	again, _ = press(t, again, "enter")
	if again.rate != pos.Rate {
		t.Errorf("rate = %d, want %d", again.rate, pos.Rate)
	}
}

func TestModelDegradedAnalysis(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.addDocument(reader.Document{Title: "Notes", Content: "A <b> tag."}); err != nil {
		t.Fatalf("addDocument: %v", err)
	}

	m := newModel(a, classifier.ModeStandard, false)
	m, _ = press(t, m, "enter")
	m, cmd := press(t, m, "2")
	if !m.analyzing {
		t.Fatal("creative mode should analyze in the background")
	}

	msg, ok := analysisOf(collect(cmd))
	if !ok {
		t.Fatal("no analysis message")
	}
	next, _ := m.Update(msg)
	m = next.(model)
	if m.analyzing {
		t.Error("still analyzing")
	}
	if !m.result.Degraded {
		t.Error("result should be degraded without a classifier")
	}
	if m.result.Markup != "A &lt;b&gt; tag." {
		t.Errorf("markup = %q", m.result.Markup)
	}
}

func TestModelDropsStaleAnalysis(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.addDocument(reader.Document{Title: "Notes", Content: "Some text."}); err != nil {
		t.Fatalf("addDocument: %v", err)
	}

	m := newModel(a, classifier.ModeStandard, false)
	m, _ = press(t, m, "enter")
	m, creative := press(t, m, "2")
	msgs := collect(creative)

	// Switching back to standard supersedes the pending analysis.
	m, _ = press(t, m, "1")
	msg, ok := analysisOf(msgs)
	if !ok {
		t.Fatal("no analysis message")
	}
	next, _ := m.Update(msg)
	m = next.(model)
	if m.result.Mode != classifier.ModeStandard {
		t.Errorf("mode = %q, stale result applied", m.result.Mode)
	}
}

func TestModelShelfDelete(t *testing.T) {
	a := newTestApp(t)
	for _, title := range []string{"First", "Second"} {
		if _, err := a.addDocument(reader.Document{Title: title, Content: title + " text."}); err != nil {
			t.Fatalf("addDocument: %v", err)
		}
	}

	m := newModel(a, classifier.ModeStandard, false)
	m, _ = press(t, m, "j", "d", "n")
	if a.shelf.Len() != 2 {
		t.Fatalf("declined delete removed a book")
	}
	m, _ = press(t, m, "d", "y")
	if a.shelf.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.shelf.Len())
	}
	if len(m.books) != 1 || m.books[0].Title != "First" {
		t.Errorf("books = %+v", m.books)
	}
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestModelManualEntryAfterFailedImport(t *testing.T) {
	a := newTestApp(t)
	m := newModel(a, classifier.ModeStandard, false)

	next, _ := m.Update(importMsg{path: "/tmp/report.pdf", err: session.ErrParse})
	m = next.(model)
	if !strings.Contains(m.status, "W to type or paste") {
		t.Fatalf("status = %q, want manual entry offer", m.status)
	}

	m, _ = press(t, m, "w")
	if !m.entering {
		t.Fatal("w did not open the entry form")
	}
	if got := m.entryTitle.Value(); got != "report" {
		t.Errorf("title = %q, want %q", got, "report")
	}

	m, _ = press(t, m, "enter", "鲁迅", "tab", "这几天心里颇不宁静。", "ctrl+s")
	if m.entering {
		t.Fatalf("form still open, status %q", m.status)
	}
	if a.shelf.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.shelf.Len())
	}
	b := m.books[m.cursor]
	if b.Title != "report" || b.Author != "鲁迅" || b.Content != "这几天心里颇不宁静。" {
		t.Errorf("added book = %+v", b)
	}
	if m.failedPath != "" {
		t.Errorf("failedPath = %q, want cleared", m.failedPath)
	}
}

func TestModelManualEntryValidation(t *testing.T) {
	a := newTestApp(t)
	m := newModel(a, classifier.ModeStandard, false)

	m, _ = press(t, m, "w", "Notes", "ctrl+s")
	if !m.entering || a.shelf.Len() != 0 {
		t.Fatalf("saved a book without text")
	}
	if !strings.Contains(m.status, "required") {
		t.Errorf("status = %q", m.status)
	}

	m, _ = press(t, m, "tab", "tab", "Some text.", "ctrl+s")
	if a.shelf.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.shelf.Len())
	}
	if b := m.books[m.cursor]; b.Author != manualAuthor {
		t.Errorf("author = %q, want %q", b.Author, manualAuthor)
	}

	m, _ = press(t, m, "w", "esc")
	if m.entering {
		t.Error("esc did not close the form")
	}
	if a.shelf.Len() != 1 {
		t.Errorf("cancel changed the shelf")
	}
}

func TestModelTermSelection(t *testing.T) {
	a := newTestApp(t)
	m := newModel(a, classifier.ModeStandard, false)
	m.result = session.Result{Mode: classifier.ModeAnalytical}
	m.setResult(session.Result{
		Mode:   classifier.ModeAnalytical,
		Text:   "Alice met Bob.",
		Markup: a.session.Engine().AnnotateAnalytical("Alice met Bob.", annotate.AnalyticalTerms{ProperNouns: []string{"Alice", "Bob"}}),
	})
	m.view = readerView
	m.pages, m.starts = []string{"Alice met Bob."}, []int{0}

	m, _ = press(t, m, "tab")
	if m.selected < 0 || m.pieces[m.selected].Term != "Alice" {
		t.Fatalf("first tab selected %d", m.selected)
	}
	m, _ = press(t, m, "tab")
	if m.pieces[m.selected].Term != "Bob" {
		t.Errorf("second tab selected %q", m.pieces[m.selected].Term)
	}

	m, cmd := press(t, m, "enter")
	if !m.explaining {
		t.Fatal("enter should request an explanation")
	}
	for _, msg := range collect(cmd) {
		if e, ok := msg.(explainMsg); ok {
			next, _ := m.Update(e)
			m = next.(model)
		}
	}
	if m.explanation != session.ExplanationUnavailable {
		t.Errorf("explanation = %q", m.explanation)
	}

	m, _ = press(t, m, "esc")
	if m.selected != -1 || m.view != readerView {
		t.Errorf("esc should clear the selection first")
	}
}

func BenchmarkRenderMarkup(b *testing.B) {
	text := strings.Repeat("The moon rose over the lotus pond. ", 100)
	markup := annotate.Apply(annotate.Sanitize(text), []string{"moon", "lotus", "pond"}, annotate.Noun, annotate.NounColor)
	pieces := annotate.Pieces(markup)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		renderMarkup(pieces, -1, 80)
	}
}
