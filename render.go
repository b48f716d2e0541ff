//go:build !gui

package main

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/metcalfc/hetang/internal/annotate"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F97316"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	activeUnitStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	dimUnitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color("#444444"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F97316")).
			Bold(true)
)

// creativeAlpha matches the 0x4d alpha of the creative span background.
const creativeAlpha = float64(0x4d) / 255

// termStyle renders a term span the way its inline style does on a page: the
// analytical categories on their fixed background and ink, creative terms as a
// translucent wash of their colour over the terminal background.
func termStyle(p annotate.Piece) lipgloss.Style {
	st := lipgloss.NewStyle()
	if ink := annotate.Ink(p.Category); ink != "" {
		return st.Background(lipgloss.Color(p.Color)).Foreground(lipgloss.Color(ink))
	}
	c, err := colorful.Hex(p.Color)
	if err != nil {
		return st.Underline(true)
	}
	base := colorful.Color{R: 1, G: 1, B: 1}
	if lipgloss.HasDarkBackground() {
		base = colorful.Color{}
	}
	return st.Background(lipgloss.Color(base.BlendRgb(c, creativeAlpha).Clamped().Hex()))
}

// renderMarkup draws annotated markup for the terminal. The term at piece index
// selected is shown reversed; -1 selects nothing.
func renderMarkup(pieces []annotate.Piece, selected, width int) string {
	var sb strings.Builder
	for i, p := range pieces {
		switch p.Kind {
		case annotate.KindBreak:
			sb.WriteString("\n")
		case annotate.KindTerm:
			st := termStyle(p)
			if i == selected {
				st = st.Reverse(true).Bold(true)
			}
			sb.WriteString(st.Render(p.Text))
		default:
			sb.WriteString(p.Text)
		}
	}
	return wrapText(strings.TrimRight(sb.String(), "\n"), width)
}

// wrapText word-wraps s, then hard-wraps lines that have no break opportunity,
// such as runs of CJK text.
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wrap.String(wordwrap.String(s, width), width)
}

// termIndexes returns the piece indexes of every term span.
func termIndexes(pieces []annotate.Piece) []int {
	var out []int
	for i, p := range pieces {
		if p.Kind == annotate.KindTerm {
			out = append(out, i)
		}
	}
	return out
}

// paginate groups consecutive units into pages of at most limit characters. A unit
// longer than limit is cut into limit-sized pages of its own. starts holds the index
// of the unit each page begins in.
func paginate(units []string, limit int) (pages []string, starts []int) {
	var sb strings.Builder
	n := 0
	flush := func() {
		if n > 0 {
			pages = append(pages, sb.String())
			sb.Reset()
			n = 0
		}
	}
	for i, u := range units {
		size := utf8.RuneCountInString(u)
		if limit > 0 && size > limit {
			flush()
			for _, part := range splitRunes(u, limit) {
				pages = append(pages, part)
				starts = append(starts, i)
			}
			continue
		}
		if n > 0 && n+size > limit {
			flush()
		}
		if n == 0 {
			starts = append(starts, i)
		}
		sb.WriteString(u)
		n += size
	}
	flush()
	return pages, starts
}

// splitRunes cuts s into pieces of at most n runes.
func splitRunes(s string, n int) []string {
	var parts []string
	for s != "" {
		cut, count := 0, 0
		for cut < len(s) && count < n {
			_, w := utf8.DecodeRuneInString(s[cut:])
			cut += w
			count++
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	return parts
}

// pageOf returns the first page holding unit i.
func pageOf(starts []int, i int) int {
	p := 0
	for j, s := range starts {
		if s > i {
			break
		}
		p = j
	}
	for p > 0 && starts[p-1] == starts[p] {
		p--
	}
	return p
}

// renderUnits draws the focus list: the active unit in bright text with its
// neighbours dimmed, keeping the active unit near the middle of height lines.
func renderUnits(units []string, current, width, height int) string {
	if len(units) == 0 {
		return ""
	}
	rendered := make([][]string, len(units))
	for i, u := range units {
		text := strings.TrimSpace(u)
		st := dimUnitStyle
		if i == current {
			st = activeUnitStyle
		}
		rendered[i] = strings.Split(st.Render(wrapText(text, width)), "\n")
	}

	lines := append([]string(nil), rendered[current]...)
	before, after := current-1, current+1
	for len(lines) < height && (before >= 0 || after < len(units)) {
		if before >= 0 {
			lines = append(append([]string(nil), rendered[before]...), lines...)
			before--
		}
		if after < len(units) && len(lines) < height {
			lines = append(lines, rendered[after]...)
			after++
		}
	}
	if height > 0 && len(lines) > height {
		// Trim evenly around the active unit.
		top := 0
		for i := range units[before+1 : current] {
			top += len(rendered[before+1+i])
		}
		start := top - (height-len(rendered[current]))/2
		if start < 0 {
			start = 0
		}
		if start+height > len(lines) {
			start = len(lines) - height
		}
		lines = lines[start : start+height]
	}
	return strings.Join(lines, "\n")
}
