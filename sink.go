package folio

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// BufferSink is the mutable text buffer the controller writes materialized
// pages into. Index 0 is the first page of the window.
type BufferSink interface {
	Append(p Page)
	RemoveLast()
	Replace(index int, p Page)
	Clear()

	// PageExtent returns the rendered extent (rows or pixels) of the page
	// at index.
	PageExtent(index int) int
}

// RowLocator is implemented by sinks that can tell which row of a page a
// symbol is laid out on. Without it a search result is scrolled to the top of
// its page.
type RowLocator interface {
	RowOf(index, offset int) int
}

// ScrollMetrics describes the scrollbar model for the whole document.
type ScrollMetrics struct {
	PageCount int64
	Page      int64
}

// Viewport is the presentation side of the view.
type Viewport interface {
	// ScrollTo scrolls so that offset, measured from the top of the first
	// materialized page, is at the top of the visible area.
	ScrollTo(offset int)
	SetScrollbar(m ScrollMetrics)
	Select(start, end SymbolPosition)
	MoveCaret(pos SymbolPosition)
}

// TextSink is an in-memory BufferSink and Viewport that lays pages out as
// rows of at most Width display cells. It is the reference collaborator used
// by the REPL and tests; a real editor supplies its own.
type TextSink struct {
	mu sync.Mutex

	width  int // display cells per row, 0 disables wrapping
	height int // visible rows

	pages []Page
	rows  [][]string

	scroll    int
	scrollbar ScrollMetrics
	selStart  SymbolPosition
	selEnd    SymbolPosition
	selected  bool
	caret     SymbolPosition
}

// NewTextSink creates a sink with the given row width and visible height.
func NewTextSink(width, height int) *TextSink {
	return &TextSink{width: width, height: height}
}

func (s *TextSink) Append(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
	s.rows = append(s.rows, layoutRows(p.Text, s.width))
}

func (s *TextSink) RemoveLast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pages) == 0 {
		return
	}
	s.pages = s.pages[:len(s.pages)-1]
	s.rows = s.rows[:len(s.rows)-1]
}

func (s *TextSink) Replace(index int, p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pages) {
		return
	}
	s.pages[index] = p
	s.rows[index] = layoutRows(p.Text, s.width)
}

func (s *TextSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = nil
	s.rows = nil
	s.scroll = 0
}

func (s *TextSink) PageExtent(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rows) {
		return 0
	}
	return len(s.rows[index])
}

// RowOf returns the row, within the page at index, holding the symbol at
// offset. Offsets past the end map to the last row.
func (s *TextSink) RowOf(index, offset int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pages) {
		return 0
	}

	rows := 0
	for _, line := range strings.SplitAfter(s.pages[index].Text, "\n") {
		if line == "" {
			break
		}
		n := utf8.RuneCountInString(line)
		pieces := wrapLine(strings.TrimSuffix(line, "\n"), s.width)
		if offset < n {
			for i, piece := range pieces {
				pn := utf8.RuneCountInString(piece)
				if offset < pn || i == len(pieces)-1 {
					return rows + i
				}
				offset -= pn
			}
		}
		offset -= n
		rows += len(pieces)
	}
	if rows > 0 {
		return rows - 1
	}
	return 0
}

func (s *TextSink) ScrollTo(offset int) {
	s.mu.Lock()
	s.scroll = offset
	s.mu.Unlock()
}

func (s *TextSink) SetScrollbar(m ScrollMetrics) {
	s.mu.Lock()
	s.scrollbar = m
	s.mu.Unlock()
}

func (s *TextSink) Select(start, end SymbolPosition) {
	s.mu.Lock()
	s.selStart, s.selEnd, s.selected = start, end, true
	s.mu.Unlock()
}

func (s *TextSink) MoveCaret(pos SymbolPosition) {
	s.mu.Lock()
	s.caret = pos
	s.mu.Unlock()
}

// Resize changes the layout width and visible height and re-lays out every
// page. Callers must follow with Controller.OnViewportResized.
func (s *TextSink) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	for i, p := range s.pages {
		s.rows[i] = layoutRows(p.Text, width)
	}
}

// Height returns the number of visible rows.
func (s *TextSink) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// Text returns the concatenated text of every page in the buffer.
func (s *TextSink) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, p := range s.pages {
		b.WriteString(p.Text)
	}
	return b.String()
}

// PageNumbers returns the numbers of the pages in the buffer, in order.
func (s *TextSink) PageNumbers() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	nums := make([]int64, len(s.pages))
	for i, p := range s.pages {
		nums[i] = p.Number
	}
	return nums
}

// Scroll returns the current scroll offset.
func (s *TextSink) Scroll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll
}

// Scrollbar returns the last scrollbar metrics.
func (s *TextSink) Scrollbar() ScrollMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollbar
}

// Selection returns the selected range, if any.
func (s *TextSink) Selection() (start, end SymbolPosition, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selStart, s.selEnd, s.selected
}

// Caret returns the caret position.
func (s *TextSink) Caret() SymbolPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caret
}

// VisibleRows returns the rows currently inside the visible area.
func (s *TextSink) VisibleRows() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	skip := s.scroll
	for _, rows := range s.rows {
		for _, row := range rows {
			if skip > 0 {
				skip--
				continue
			}
			if len(out) >= s.height {
				return out
			}
			out = append(out, row)
		}
	}
	return out
}

// layoutRows splits text into display rows: one per line, wrapped at width
// display cells. A trailing newline does not start an extra row.
func layoutRows(text string, width int) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	rows := make([]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, wrapLine(line, width)...)
	}
	return rows
}

// wrapLine breaks a line into pieces no wider than width display cells.
func wrapLine(line string, width int) []string {
	if width <= 0 || runewidth.StringWidth(line) <= width {
		return []string{line}
	}

	var rows []string
	var b strings.Builder
	cells := 0
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if cells+w > width && cells > 0 {
			rows = append(rows, b.String())
			b.Reset()
			cells = 0
		}
		b.WriteRune(r)
		cells += w
	}
	if b.Len() > 0 {
		rows = append(rows, b.String())
	}
	return rows
}
