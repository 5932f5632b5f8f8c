package folio

import "testing"

func TestLayoutRows(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  int
	}{
		{"", 0, 0},
		{"\n", 0, 1},
		{"one line", 0, 1},
		{"a\nb\nc\n", 0, 3},
		{"a\nb\nc", 0, 3},
		{"0123456789", 4, 3},
		{"日本語日本語", 4, 3}, // two cells per rune
	}

	for _, tt := range tests {
		if got := len(layoutRows(tt.text, tt.width)); got != tt.want {
			t.Errorf("layoutRows(%q, %d) = %d rows, want %d", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestTextSinkPages(t *testing.T) {
	s := NewTextSink(0, 3)

	s.Append(Page{Number: 4, Text: "a\nb\n"})
	s.Append(Page{Number: 5, Text: "c\nd\ne\n"})

	if s.PageExtent(0) != 2 || s.PageExtent(1) != 3 {
		t.Errorf("extents = %d, %d; want 2, 3", s.PageExtent(0), s.PageExtent(1))
	}
	if s.PageExtent(2) != 0 {
		t.Error("extent of a missing page should be 0")
	}

	s.ScrollTo(1)
	rows := s.VisibleRows()
	want := []string{"b", "c", "d"}
	if len(rows) != len(want) {
		t.Fatalf("VisibleRows = %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("VisibleRows = %v, want %v", rows, want)
		}
	}

	s.Replace(0, Page{Number: 4, Text: "a\n"})
	if s.PageExtent(0) != 1 {
		t.Errorf("extent after Replace = %d, want 1", s.PageExtent(0))
	}

	s.RemoveLast()
	if nums := s.PageNumbers(); len(nums) != 1 || nums[0] != 4 {
		t.Errorf("PageNumbers after RemoveLast = %v, want [4]", nums)
	}

	s.Clear()
	if s.Text() != "" || s.Scroll() != 0 {
		t.Error("sink not empty after Clear")
	}
}

func TestTextSinkRowOf(t *testing.T) {
	s := NewTextSink(3, 10)
	s.Append(Page{Text: "ab\nabcdefg\n\nz"})
	if s.PageExtent(0) != 6 {
		t.Fatalf("extent = %d, want 6", s.PageExtent(0))
	}

	cases := []struct{ offset, row int }{
		{0, 0},
		{2, 0}, // line break of the first line
		{3, 1},
		{6, 2}, // second wrapped piece
		{9, 3},
		{10, 3},
		{11, 4}, // empty line
		{12, 5},
		{99, 5},
	}
	for _, c := range cases {
		if got := s.RowOf(0, c.offset); got != c.row {
			t.Errorf("RowOf(0, %d) = %d, want %d", c.offset, got, c.row)
		}
	}
	if got := s.RowOf(3, 0); got != 0 {
		t.Errorf("RowOf on a missing page = %d, want 0", got)
	}
}

func TestTextSinkClearKeepsSelection(t *testing.T) {
	s := NewTextSink(0, 10)
	s.Append(Page{Number: 2, Text: "abc\n"})
	s.Select(Symbol(2, 0), Symbol(2, 2))
	s.Clear()
	if start, end, ok := s.Selection(); !ok || start != Symbol(2, 0) || end != Symbol(2, 2) {
		t.Errorf("selection after Clear = %v-%v (%v), want 2:0-2:2", start, end, ok)
	}
}

func TestTextSinkResize(t *testing.T) {
	s := NewTextSink(0, 10)
	s.Append(Page{Text: "abcdefgh\n"})

	if s.PageExtent(0) != 1 {
		t.Fatalf("extent = %d, want 1", s.PageExtent(0))
	}
	s.Resize(3, 5)
	if s.PageExtent(0) != 3 {
		t.Errorf("extent after Resize = %d, want 3", s.PageExtent(0))
	}
	if s.Height() != 5 {
		t.Errorf("Height = %d, want 5", s.Height())
	}
}
