package folio

import "fmt"

// AbsolutePosition is where the view should be: a page and a row offset
// measured from the top of that page's rendered content. Offsets may be
// negative or exceed the page's extent until the controller normalizes them.
type AbsolutePosition struct {
	Page   int64
	Offset int
}

// PageStart returns the position at the top of a page.
func PageStart(page int64) AbsolutePosition {
	return AbsolutePosition{Page: page}
}

func (p AbsolutePosition) String() string {
	return fmt.Sprintf("%d+%d", p.Page, p.Offset)
}

// SymbolPosition addresses a symbol (rune) within a page. It is used for caret
// and selection endpoints and for search-result bounds.
type SymbolPosition struct {
	Page   int64
	Offset int
}

// Symbol creates a SymbolPosition.
func Symbol(page int64, offset int) SymbolPosition {
	return SymbolPosition{Page: page, Offset: offset}
}

// Compare returns -1, 0 or +1 as p sorts before, equal to, or after o.
// Page numbers order first, then symbol offsets.
func (p SymbolPosition) Compare(o SymbolPosition) int {
	switch {
	case p.Page < o.Page:
		return -1
	case p.Page > o.Page:
		return 1
	case p.Offset < o.Offset:
		return -1
	case p.Offset > o.Offset:
		return 1
	}
	return 0
}

// Less reports whether p sorts strictly before o.
func (p SymbolPosition) Less(o SymbolPosition) bool {
	return p.Compare(o) < 0
}

// Greater reports whether p sorts strictly after o.
func (p SymbolPosition) Greater(o SymbolPosition) bool {
	return p.Compare(o) > 0
}

// Equal reports whether p and o address the same symbol.
func (p SymbolPosition) Equal(o SymbolPosition) bool {
	return p.Compare(o) == 0
}

// LessOrEqual is the negation of Greater.
func (p SymbolPosition) LessOrEqual(o SymbolPosition) bool {
	return !p.Greater(o)
}

// GreaterOrEqual is the negation of Less.
func (p SymbolPosition) GreaterOrEqual(o SymbolPosition) bool {
	return !p.Less(o)
}

func (p SymbolPosition) String() string {
	return fmt.Sprintf("%d:%d", p.Page, p.Offset)
}
