package folio

import "unicode/utf8"

// Edit replaces Removed with Inserted at a symbol offset within one page.
type Edit struct {
	Page     int64
	Offset   int // runes from the start of the page
	Removed  string
	Inserted string
}

// Inverse returns the edit that undoes e.
func (e Edit) Inverse() Edit {
	return Edit{Page: e.Page, Offset: e.Offset, Removed: e.Inserted, Inserted: e.Removed}
}

// Start returns the position where the edit begins.
func (e Edit) Start() SymbolPosition {
	return SymbolPosition{Page: e.Page, Offset: e.Offset}
}

// End returns the position just past the inserted text.
func (e Edit) End() SymbolPosition {
	return SymbolPosition{Page: e.Page, Offset: e.Offset + utf8.RuneCountInString(e.Inserted)}
}

// apply returns text with the edit performed, checking that Removed is
// present at the edit position.
func (e Edit) apply(text string) (string, error) {
	start, ok := runeByteOffset(text, e.Offset)
	if !ok {
		return "", ErrInvalidPosition
	}
	if len(text)-start < len(e.Removed) || text[start:start+len(e.Removed)] != e.Removed {
		return "", ErrEditMismatch
	}
	return spliceRunes(text, e.Offset, utf8.RuneCountInString(e.Removed), e.Inserted)
}

// History holds bounded undo and redo stacks of edits.
type History struct {
	limit int
	undo  []Edit
	redo  []Edit
}

// NewHistory creates a history keeping at most limit undoable edits.
// A limit of 0 disables undo.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Record pushes a fresh edit and discards the redo stack.
func (h *History) Record(e Edit) {
	h.redo = h.redo[:0]
	if h.limit == 0 {
		return
	}
	h.undo = append(h.undo, e)
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = append(h.undo[:0], h.undo[over:]...)
	}
}

// NextUndo returns the edit that undoing would apply (already inverted).
func (h *History) NextUndo() (Edit, bool) {
	if len(h.undo) == 0 {
		return Edit{}, false
	}
	return h.undo[len(h.undo)-1].Inverse(), true
}

// NextRedo returns the edit that redoing would apply.
func (h *History) NextRedo() (Edit, bool) {
	if len(h.redo) == 0 {
		return Edit{}, false
	}
	return h.redo[len(h.redo)-1], true
}

// commitUndo moves the newest undo entry onto the redo stack.
func (h *History) commitUndo() {
	if len(h.undo) == 0 {
		return
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, e)
}

// commitRedo moves the newest redo entry back onto the undo stack.
func (h *History) commitRedo() {
	if len(h.redo) == 0 {
		return
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, e)
}

// CanUndo reports whether there is an edit to undo.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether there is an edit to redo.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
