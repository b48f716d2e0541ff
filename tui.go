//go:build !gui

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/metcalfc/hetang/internal/annotate"
	"github.com/metcalfc/hetang/internal/classifier"
	"github.com/metcalfc/hetang/internal/playback"
	"github.com/metcalfc/hetang/internal/reader"
	"github.com/metcalfc/hetang/internal/session"
	"github.com/metcalfc/hetang/internal/shelf"
	"github.com/metcalfc/hetang/internal/state"
)

type view int

const (
	shelfView view = iota
	readerView
	focusView
)

const (
	analyzeTimeout = 2 * time.Minute
	explainTimeout = 30 * time.Second
	importTimeout  = 5 * time.Minute

	headerLines = 2
	panelLines  = 4

	// manualAuthor is the author of typed-in books that name none.
	manualAuthor = "本地导入"
)

// Fields of the manual entry form, in tab order.
const (
	entryTitle = iota
	entryAuthor
	entryBody
	entryFields
)

type (
	analysisMsg session.Result
	playbackMsg playback.State

	explainMsg struct {
		term string
		text string
	}

	importMsg struct {
		path string
		book shelf.Book
		err  error
	}
)

type model struct {
	app   *app
	view  view
	fresh bool

	// shelf
	books    []shelf.Book
	cursor   int
	deleting bool
	input    textinput.Model
	status   string

	// manual entry
	entering    bool
	entryField  int
	entryTitle  textinput.Model
	entryAuthor textinput.Model
	entryBody   textarea.Model
	failedPath  string

	// reader
	book        shelf.Book
	doc         reader.Document
	chapter     int
	units       []string
	pages       []string
	starts      []int
	page        int
	mode        classifier.Mode
	highlight   annotate.HighlightConfig
	result      session.Result
	pieces      []annotate.Piece
	terms       []int
	selected    int
	analyzing   bool
	explaining  bool
	explanation string
	viewport    viewport.Model
	spinner     spinner.Model

	// focus
	player  *playback.Scheduler
	changes chan playback.State
	done    chan struct{}
	play    playback.State
	rate    int

	quitting bool
	width    int
	height   int
}

func newModel(a *app, mode classifier.Mode, fresh bool) model {
	ti := textinput.New()
	ti.Prompt = "file: "
	ti.Placeholder = "path to .txt, .md, .html, .epub or .pdf"
	ti.CharLimit = 0

	title := textinput.New()
	title.Prompt = "title:  "
	author := textinput.New()
	author.Prompt = "author: "
	author.Placeholder = manualAuthor
	body := textarea.New()
	body.Placeholder = "Type or paste the text here..."
	body.ShowLineNumbers = false
	body.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		app:         a,
		fresh:       fresh,
		books:       a.shelf.List(),
		input:       ti,
		entryTitle:  title,
		entryAuthor: author,
		entryBody:   body,
		mode:        mode,
		highlight:   a.cfg.Highlight,
		selected:    -1,
		viewport:    viewport.New(80, 24-headerLines-panelLines),
		spinner:     sp,
		rate:        a.cfg.Playback.Rate,
		width:       80,
		height:      24,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if !m.analyzing && !m.explaining {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case analysisMsg:
		r := session.Result(msg)
		if !m.app.session.Current(r.Revision) {
			return m, nil
		}
		m.analyzing = false
		// Highlights may have been toggled while the classifier was working.
		m.setResult(m.app.session.Rehighlight(r, m.highlight))
		return m, nil

	case explainMsg:
		if m.selected >= 0 && m.pieces[m.selected].Term == msg.term {
			m.explaining = false
			m.explanation = msg.text
		}
		return m, nil

	case importMsg:
		m.input.Blur()
		m.input.SetValue("")
		if msg.err != nil {
			m.failedPath = msg.path
			m.status = errorStyle.Render("Import failed: "+msg.err.Error()) + "\n" +
				controlsStyle.Render("Press W to type or paste the text instead.")
			return m, nil
		}
		m.books = m.app.shelf.List()
		m.cursor = len(m.books) - 1
		m.status = fmt.Sprintf("Imported %q", msg.book.Title)
		return m, nil

	case playbackMsg:
		if m.view != focusView {
			return m, nil
		}
		m.play = playback.State(msg)
		m.rate = m.play.Rate
		return m, m.waitForPlayback()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.view {
		case shelfView:
			return m.updateShelf(msg)
		case readerView:
			return m.updateReader(msg)
		case focusView:
			return m.updateFocus(msg)
		}
	}
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	switch m.view {
	case readerView:
		m.saveReaderPosition()
	case focusView:
		m.closeFocus()
	}
	m.quitting = true
	return m, tea.Quit
}

func (m model) updateShelf(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entering {
		return m.updateEntry(msg)
	}
	if m.input.Focused() {
		switch msg.String() {
		case "esc":
			m.input.Blur()
			m.input.SetValue("")
			m.status = ""
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.input.Value())
			if path == "" {
				return m, nil
			}
			m.status = "Importing " + path + "..."
			return m, m.importCmd(path)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.deleting {
		m.deleting = false
		if msg.String() == "y" && m.cursor < len(m.books) {
			b := m.books[m.cursor]
			if err := m.app.deleteBook(b.ID); err != nil {
				m.status = errorStyle.Render(err.Error())
				return m, nil
			}
			m.app.clearPosition(b)
			m.books = m.app.shelf.List()
			if m.cursor >= len(m.books) && m.cursor > 0 {
				m.cursor--
			}
			m.status = fmt.Sprintf("Deleted %q", b.Title)
			return m, nil
		}
		m.status = ""
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.books)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.books) {
			return m.open(m.books[m.cursor])
		}
	case "d", "x":
		if m.cursor < len(m.books) {
			m.deleting = true
			m.status = fmt.Sprintf("Delete %q? (y/n)", m.books[m.cursor].Title)
		}
	case "i", "a":
		m.status = ""
		return m, m.input.Focus()
	case "w", "W":
		return m.startEntry()
	case "q", "Q":
		return m.quit()
	}
	return m, nil
}

// startEntry opens the manual entry form. After a failed import the title is
// taken from the file name.
func (m model) startEntry() (tea.Model, tea.Cmd) {
	m.entering = true
	m.status = ""
	m.entryTitle.SetValue("")
	m.entryAuthor.SetValue("")
	m.entryBody.SetValue("")
	if m.failedPath != "" {
		base := filepath.Base(m.failedPath)
		m.entryTitle.SetValue(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	m.entryBody.SetWidth(max(20, m.width-2))
	m.entryBody.SetHeight(max(3, m.height-len(m.books)-10))
	return m, m.focusEntry(entryTitle)
}

func (m *model) blurEntry() {
	m.entryTitle.Blur()
	m.entryAuthor.Blur()
	m.entryBody.Blur()
}

func (m *model) focusEntry(field int) tea.Cmd {
	m.entryField = field
	m.blurEntry()
	switch field {
	case entryTitle:
		return m.entryTitle.Focus()
	case entryAuthor:
		return m.entryAuthor.Focus()
	default:
		return m.entryBody.Focus()
	}
}

func (m model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.entering = false
		m.blurEntry()
		m.status = ""
		return m, nil
	case "tab":
		return m, m.focusEntry((m.entryField + 1) % entryFields)
	case "shift+tab":
		return m, m.focusEntry((m.entryField + entryFields - 1) % entryFields)
	case "ctrl+s":
		return m.saveEntry()
	case "enter":
		if m.entryField != entryBody {
			return m, m.focusEntry(m.entryField + 1)
		}
	}

	var cmd tea.Cmd
	switch m.entryField {
	case entryTitle:
		m.entryTitle, cmd = m.entryTitle.Update(msg)
	case entryAuthor:
		m.entryAuthor, cmd = m.entryAuthor.Update(msg)
	default:
		m.entryBody, cmd = m.entryBody.Update(msg)
	}
	return m, cmd
}

// saveEntry puts the typed book on the shelf. Title and text are required.
func (m model) saveEntry() (tea.Model, tea.Cmd) {
	title := strings.TrimSpace(m.entryTitle.Value())
	content := strings.TrimSpace(strings.ReplaceAll(m.entryBody.Value(), "\r\n", "\n"))
	if title == "" || content == "" {
		m.status = errorStyle.Render("A title and some text are required.")
		return m, nil
	}
	author := strings.TrimSpace(m.entryAuthor.Value())
	if author == "" {
		author = manualAuthor
	}
	b, err := m.app.addDocument(reader.Document{Title: title, Author: author, Content: content})
	if err != nil {
		m.status = errorStyle.Render(err.Error())
		return m, nil
	}
	m.entering = false
	m.failedPath = ""
	m.blurEntry()
	m.books = m.app.shelf.List()
	m.cursor = len(m.books) - 1
	m.status = fmt.Sprintf("Added %q", b.Title)
	return m, nil
}

func (m model) importCmd(path string) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()
		doc, err := a.importFile(ctx, path)
		if err != nil {
			return importMsg{path: path, err: err}
		}
		b, err := a.addDocument(doc)
		return importMsg{path: path, book: b, err: err}
	}
}

// open shows a book in the reader, restoring its saved chapter, mode and rate.
func (m model) open(b shelf.Book) (tea.Model, tea.Cmd) {
	m.book = b
	m.doc = m.app.document(b)
	m.view = readerView
	m.status = ""
	m.chapter = 0
	unit := 0
	if pos, ok := m.app.position(b); ok && !m.fresh {
		m.chapter = pos.Chapter
		unit = pos.Unit
		if pos.Rate != 0 {
			m.rate = playback.ClampRate(pos.Rate)
		}
		if mode, err := classifier.ParseMode(pos.Mode); err == nil && pos.Mode != "" {
			m.mode = mode
		}
	}
	m.loadChapter(m.chapter)
	m.page = pageOf(m.starts, unit)
	return m, m.analyze()
}

func (m *model) loadChapter(i int) {
	if i < 0 {
		i = 0
	}
	if n := m.doc.ChapterCount(); i >= n {
		i = n - 1
	}
	m.chapter = i
	m.units = reader.Segment(m.doc.ChapterText(i))
	m.pages, m.starts = paginate(m.units, m.app.session.Engine().MaxChars())
	if len(m.pages) == 0 {
		m.pages, m.starts = []string{""}, []int{0}
	}
	m.page = 0
}

// analyze annotates the current page. Standard mode needs no classifier and runs
// inline; the other modes run in the background and stale results are dropped.
func (m *model) analyze() tea.Cmd {
	text := m.pages[m.page]
	sess, mode, cfg := m.app.session, m.mode, m.highlight
	m.clearSelection()
	if mode == classifier.ModeStandard {
		m.analyzing = false
		m.setResult(sess.Analyze(context.Background(), text, mode, cfg))
		return nil
	}
	m.analyzing = true
	m.setResult(session.Result{Mode: mode, Text: text, Markup: annotate.Sanitize(sess.Engine().Truncate(text))})
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
		defer cancel()
		return analysisMsg(sess.Analyze(ctx, text, mode, cfg))
	})
}

func (m *model) setResult(r session.Result) {
	m.result = r
	m.pieces = annotate.Pieces(r.Markup)
	m.terms = termIndexes(m.pieces)
	m.clearSelection()
	m.refresh()
}

func (m *model) clearSelection() {
	m.selected = -1
	m.explanation = ""
	m.explaining = false
}

// refresh re-renders the page into the viewport.
func (m *model) refresh() {
	var sb strings.Builder
	if m.result.Mode == classifier.ModeAnalytical && !m.analyzing {
		var head strings.Builder
		head.WriteString(m.result.Summary)
		if len(m.result.Keywords) > 0 {
			head.WriteString("\n")
			head.WriteString(statusStyle.Render("Keywords: " + strings.Join(m.result.Keywords, ", ")))
		}
		if head.Len() > 0 {
			sb.WriteString(summaryStyle.Width(max(10, m.viewport.Width-2)).Render(wrapText(head.String(), m.viewport.Width-6)))
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(renderMarkup(m.pieces, m.selected, m.viewport.Width))
	m.viewport.SetContent(sb.String())
}

func (m *model) layout() {
	m.viewport.Width = max(20, m.width)
	m.viewport.Height = max(3, m.height-headerLines-panelLines)
	if m.view == readerView {
		m.refresh()
	}
}

func (m model) updateReader(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q":
		return m.quit()
	case "esc":
		if m.selected >= 0 {
			m.clearSelection()
			m.refresh()
			return m, nil
		}
		m.saveReaderPosition()
		m.view = shelfView
		m.books = m.app.shelf.List()
		return m, nil

	case "1", "2", "3", "m":
		next := map[string]classifier.Mode{
			"1": classifier.ModeStandard,
			"2": classifier.ModeCreative,
			"3": classifier.ModeAnalytical,
		}[msg.String()]
		if msg.String() == "m" {
			next = nextMode(m.mode)
		}
		if next == m.mode && !m.result.Degraded {
			return m, nil
		}
		m.mode = next
		return m, m.analyze()

	case "n", "v", "a":
		c := map[string]annotate.Category{"n": annotate.Noun, "v": annotate.Verb, "a": annotate.Adjective}[msg.String()]
		m.highlight = m.highlight.Toggle(c)
		if m.result.Mode == classifier.ModeCreative && !m.analyzing {
			m.setResult(m.app.session.Rehighlight(m.result, m.highlight))
		}
		return m, nil

	case "tab", "shift+tab":
		if len(m.terms) == 0 {
			return m, nil
		}
		m.selected = m.nextTerm(msg.String() == "tab")
		m.explanation = ""
		m.explaining = false
		m.refresh()
		return m, nil

	case "enter", "e":
		if m.selected < 0 || m.explaining {
			return m, nil
		}
		term := m.pieces[m.selected].Term
		snippet := m.result.Text
		sess := m.app.session
		m.explaining = true
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), explainTimeout)
			defer cancel()
			return explainMsg{term: term, text: sess.Explain(ctx, term, snippet)}
		})

	case "right", "l", "pgdown":
		if m.page < len(m.pages)-1 {
			m.page++
			m.viewport.GotoTop()
			return m, m.analyze()
		}
		return m, nil
	case "left", "h", "pgup":
		if m.page > 0 {
			m.page--
			m.viewport.GotoTop()
			return m, m.analyze()
		}
		return m, nil
	case "]":
		if m.chapter < m.doc.ChapterCount()-1 {
			m.loadChapter(m.chapter + 1)
			m.viewport.GotoTop()
			return m, m.analyze()
		}
		return m, nil
	case "[":
		if m.chapter > 0 {
			m.loadChapter(m.chapter - 1)
			m.viewport.GotoTop()
			return m, m.analyze()
		}
		return m, nil

	case "f":
		return m.startFocus()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) nextTerm(forward bool) int {
	if m.selected < 0 {
		if forward {
			return m.terms[0]
		}
		return m.terms[len(m.terms)-1]
	}
	for i, idx := range m.terms {
		if idx != m.selected {
			continue
		}
		if forward {
			return m.terms[(i+1)%len(m.terms)]
		}
		return m.terms[(i-1+len(m.terms))%len(m.terms)]
	}
	return m.terms[0]
}

func nextMode(mode classifier.Mode) classifier.Mode {
	switch mode {
	case classifier.ModeStandard:
		return classifier.ModeCreative
	case classifier.ModeCreative:
		return classifier.ModeAnalytical
	}
	return classifier.ModeStandard
}

func (m model) saveReaderPosition() {
	unit := 0
	if m.page < len(m.starts) {
		unit = m.starts[m.page]
	}
	m.app.savePosition(m.book, state.Position{
		Chapter:   m.chapter,
		Unit:      unit,
		Rate:      m.rate,
		Mode:      string(m.mode),
		UpdatedAt: time.Now(),
	})
}

// startFocus plays the chapter from the first unit of the current page.
func (m model) startFocus() (tea.Model, tea.Cmd) {
	if len(m.units) == 0 {
		return m, nil
	}
	changes := make(chan playback.State, 1)
	done := make(chan struct{})
	player := playback.New(m.units,
		playback.WithRate(m.rate),
		playback.WithFloor(m.app.cfg.Playback.Floor()),
		playback.WithLogger(m.app.log),
	)
	player.OnChange(func(s playback.State) {
		// Keep only the newest state when the UI falls behind.
		for {
			select {
			case changes <- s:
				return
			case <-done:
				return
			default:
			}
			select {
			case <-changes:
			default:
			}
		}
	})
	m.player, m.changes, m.done = player, changes, done
	m.view = focusView
	if m.page < len(m.starts) {
		player.Seek(m.starts[m.page])
	}
	m.play = player.State()
	m.app.log.Debug("focus started", zap.String("book", m.book.ID), zap.Int("chapter", m.chapter), zap.Int("units", len(m.units)))
	return m, m.waitForPlayback()
}

func (m model) waitForPlayback() tea.Cmd {
	changes, done := m.changes, m.done
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-changes:
			return playbackMsg(s)
		case <-done:
			return nil
		}
	}
}

// closeFocus stops the player and saves where it stopped.
func (m *model) closeFocus() {
	if m.player == nil {
		return
	}
	m.player.Close()
	close(m.done)
	m.play = m.player.State()
	m.player, m.changes, m.done = nil, nil, nil
	m.rate = m.play.Rate
	m.app.savePosition(m.book, state.Position{
		Chapter:   m.chapter,
		Unit:      m.play.Index,
		Rate:      m.play.Rate,
		Mode:      string(m.mode),
		UpdatedAt: time.Now(),
	})
}

func (m model) updateFocus(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		m.player.Toggle()
	case "left", "h":
		m.player.Prev()
	case "right", "l":
		m.player.Next()
	case "up", "+", "=":
		m.player.SetRate(m.play.Rate + 1)
	case "down", "-":
		m.player.SetRate(m.play.Rate - 1)
	case "r", "R":
		m.player.Seek(0)
	case "esc", "f":
		m.closeFocus()
		m.view = readerView
		if p := pageOf(m.starts, m.play.Index); p != m.page && m.starts[m.page] != m.play.Index {
			m.page = p
			m.viewport.GotoTop()
			return m, m.analyze()
		}
		m.refresh()
		return m, nil
	case "q", "Q":
		return m.quit()
	}
	// Key handling applies synchronously; read the state back for an immediate redraw.
	m.play = m.player.State()
	m.rate = m.play.Rate
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	switch m.view {
	case readerView:
		return m.readerViewString()
	case focusView:
		return m.focusViewString()
	}
	return m.shelfViewString()
}

func (m model) shelfViewString() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("荷塘 Shelf"))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("%d books", len(m.books))))
	sb.WriteString("\n\n")

	if len(m.books) == 0 {
		sb.WriteString(dimUnitStyle.Render("  The shelf is empty. Press i to import a file or w to type one in."))
		sb.WriteString("\n")
	}
	for i, b := range m.books {
		swatch := lipgloss.NewStyle().Background(lipgloss.Color(b.CoverColor)).Render("  ")
		line := fmt.Sprintf(" %s %s", swatch, b.Title)
		if b.Author != "" {
			line += dimUnitStyle.Render(" · " + b.Author)
		}
		if i == m.cursor {
			sb.WriteString(cursorStyle.Render(">"))
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if m.entering {
		sb.WriteString(titleStyle.Render("New book"))
		sb.WriteString("\n")
		sb.WriteString(m.entryTitle.View())
		sb.WriteString("\n")
		sb.WriteString(m.entryAuthor.View())
		sb.WriteString("\n")
		sb.WriteString(m.entryBody.View())
		sb.WriteString("\n")
		if m.status != "" {
			sb.WriteString(m.status)
			sb.WriteString("\n")
		}
		sb.WriteString(controlsStyle.Render("TAB: next field  CTRL+S: save  ESC: cancel"))
		return sb.String()
	}
	if m.input.Focused() {
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
	}
	if m.status != "" {
		sb.WriteString(m.status)
		sb.WriteString("\n")
	}
	sb.WriteString(controlsStyle.Render("ENTER: open  I: import  W: write  D: delete  ↑/↓: select  Q: quit"))
	return sb.String()
}

func (m model) readerViewString() string {
	title := m.doc.ChapterTitle(m.chapter)
	if title == "" {
		title = m.book.Title
	}
	header := titleStyle.Render(title)

	mode := string(m.mode)
	if m.analyzing {
		mode += " " + m.spinner.View()
	} else if m.result.Degraded {
		mode += pausedStyle.Render(" [unannotated]")
	}
	status := statusStyle.Render(fmt.Sprintf("Chapter %d/%d | Page %d/%d | %s%s",
		m.chapter+1, m.doc.ChapterCount(), m.page+1, len(m.pages), mode, m.highlightStatus()))

	var panel string
	switch {
	case m.selected >= 0:
		p := m.pieces[m.selected]
		text := p.Category.Label()
		if m.explaining {
			text = m.spinner.View() + " explaining..."
		} else if m.explanation != "" {
			text = m.explanation
		} else {
			text += "  (ENTER: explain)"
		}
		panel = termStyle(p).Render(p.Text) + " " + text
	case m.status != "":
		panel = m.status
	}
	panel = panelStyle.Width(m.viewport.Width).MaxHeight(panelLines - 1).Render(wrapText(panel, m.viewport.Width))

	controls := controlsStyle.Render("1/2/3: mode  N/V/A: highlights  TAB: term  ←/→: page  [/]: chapter  F: focus  ESC: shelf")
	return header + "\n" + status + "\n" + m.viewport.View() + "\n" + panel + "\n" + controls
}

func (m model) highlightStatus() string {
	if m.mode != classifier.ModeCreative {
		return ""
	}
	var on []string
	for _, c := range []annotate.Category{annotate.Noun, annotate.Verb, annotate.Adjective} {
		if m.highlight.For(c).Enabled {
			on = append(on, c.Label()+"s")
		}
	}
	if len(on) == 0 {
		return " (no highlights)"
	}
	return " (" + strings.Join(on, ", ") + ")"
}

func (m model) focusViewString() string {
	if m.play.Total == 0 {
		return "No text to read."
	}

	pause := ""
	if m.play.Done() && !m.play.Playing {
		pause = completeStyle.Render(" [COMPLETE]")
	} else if !m.play.Playing {
		pause = pausedStyle.Render(" [PAUSED]")
	}
	status := statusStyle.Render(fmt.Sprintf("Sentence %d/%d | %d chars/s%s",
		m.play.Index+1, m.play.Total, m.play.Rate, pause))
	controls := controlsStyle.Render("SPACE: play/pause  ↑/↓: speed  ←/→: sentence  R: restart  ESC: back  Q: quit")

	// Reserve 2 lines: 1 for status at top, 1 for controls at bottom
	avail := m.height - 2
	if avail < 1 {
		avail = 1
	}
	body := renderUnits(m.units, m.play.Index, max(20, m.width-4), avail)
	body = lipgloss.PlaceVertical(avail, lipgloss.Center, body)

	return status + "\n" + body + "\n" + controls
}
