package folio

import "unicode/utf8"

// Page is an immutable slice of file content: the unit of I/O and eviction.
type Page struct {
	Number int64
	Text   string
	IsLast bool // true for the final page of the file
}

// Len returns the page length in symbols.
func (p Page) Len() int {
	return utf8.RuneCountInString(p.Text)
}

// withText returns a copy of the page carrying different text.
func (p Page) withText(text string) Page {
	p.Text = text
	return p
}

// PageSource supplies pages of a document.
//
// RequestRead must invoke done exactly once, even on failure. done may be
// called from any goroutine; the controller moves the result onto its own
// serialized context before touching any state.
type PageSource interface {
	PageCount() (int64, error)
	ReadPage(n int64) (Page, error)
	RequestRead(n int64, done func(Page, error))
}

// spliceRunes replaces removeLen runes at rune offset off with insert.
func spliceRunes(text string, off, removeLen int, insert string) (string, error) {
	start, ok := runeByteOffset(text, off)
	if !ok {
		return "", ErrInvalidPosition
	}
	end, ok := runeByteOffset(text[start:], removeLen)
	if !ok {
		return "", ErrInvalidPosition
	}
	end += start
	return text[:start] + insert + text[end:], nil
}

// runeByteOffset converts a rune offset into a byte offset within text.
// An offset equal to the rune count maps to len(text).
func runeByteOffset(text string, off int) (int, bool) {
	if off < 0 {
		return 0, false
	}
	i := 0
	for n := 0; n < off; n++ {
		if i >= len(text) {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i, true
}
