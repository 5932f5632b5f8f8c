package folio

import (
	"fmt"
	"time"
)

// EncodingSetter is implemented by sources that can re-decode their pages.
type EncodingSetter interface {
	SetEncoding(name string) error
}

// Reloader is implemented by sources that can pick up external changes.
type Reloader interface {
	Reload() error
}

// SetStateHandler registers a callback for state changes.
func (c *Controller) SetStateHandler(h StateHandler) {
	c.onState = h
}

// SetSaveHandler registers a callback for save completion.
func (c *Controller) SetSaveHandler(h SaveHandler) {
	c.onSave = h
}

// setTarget moves the target and clears a previous error so the next
// cycle retries.
func (c *Controller) setTarget(pos AbsolutePosition) {
	c.target = pos
	if c.state == StateError {
		c.setState(StateLoading, nil)
	}
}

// SetTargetPosition scrolls the view to pos. It is a user navigation and
// returns false when another intent holds the access token.
func (c *Controller) SetTargetPosition(pos AbsolutePosition) bool {
	if c.state == StateClosed {
		return false
	}
	tok := NewToken(NavigateByUser, pos.Page)
	if !c.lock.TryAcquire(tok) {
		return false
	}
	c.setTarget(pos)
	c.update()
	return true
}

// ScrollBy moves the target by delta rows relative to where it is now.
func (c *Controller) ScrollBy(delta int) bool {
	pos := c.target
	pos.Offset += delta
	return c.SetTargetPosition(pos)
}

// TrySwitchToPage moves the view to the top of page n.
func (c *Controller) TrySwitchToPage(n int64) bool {
	return c.SetTargetPosition(PageStart(n))
}

// OnViewportResized records a new visible extent and refits the window.
func (c *Controller) OnViewportResized(extent int) {
	if c.state == StateClosed {
		return
	}
	if extent < 0 {
		extent = 0
	}
	c.visible = extent
	c.update()
}

// TryUndoRedo undoes or redoes the most recent edit. When the edit's page
// is materialized it is applied in place; otherwise the window first
// switches to that page and the edit is applied once it arrives.
func (c *Controller) TryUndoRedo(isUndo bool) bool {
	if c.state == StateClosed {
		return false
	}

	reason := Redo
	edit, ok := c.history.NextRedo()
	if isUndo {
		reason = Undo
		edit, ok = c.history.NextUndo()
	}
	if !ok {
		return false
	}

	tok := NewToken(reason, edit.Page).Attach(AttachEdit, edit)
	if !c.lock.TryAcquire(tok) {
		return false
	}

	if c.indexOf(edit.Page) >= 0 {
		c.finishIntent(tok)
		c.update()
		return true
	}
	c.setTarget(PageStart(edit.Page))
	c.update()
	return true
}

// ShowSearchResult selects the range [start, end] and scrolls so that start
// is visible. A search jump may preempt a pending user navigation.
func (c *Controller) ShowSearchResult(start, end SymbolPosition) bool {
	if c.state == StateClosed {
		return false
	}
	if end.Less(start) {
		start, end = end, start
	}

	tok := NewToken(ShowSearchResult, start.Page).
		Attach(AttachResultStart, start).
		Attach(AttachResultEnd, end)
	if !c.lock.TryAcquire(tok) {
		return false
	}

	if c.Contains(start) && c.Contains(end) {
		if c.finishIntent(tok) {
			c.update()
		}
		return true
	}
	c.setTarget(PageStart(start.Page))
	c.update()
	return true
}

// TryChangeEncoding re-decodes the document with another charset. It
// returns an error for unknown names, unsaved edits or sources that cannot
// switch encodings, and false without error when another intent is active.
func (c *Controller) TryChangeEncoding(name string) (bool, error) {
	if c.state == StateClosed {
		return false, ErrClosed
	}
	cs, err := LookupEncoding(name)
	if err != nil {
		return false, err
	}
	setter, ok := c.source.(EncodingSetter)
	if !ok {
		return false, ErrNotSupported
	}
	if dirty, err := c.Dirty(); err != nil {
		return false, err
	} else if dirty {
		return false, ErrUnsavedChanges
	}

	tok := NewToken(ChangeEncoding, c.target.Page).Attach(AttachEncoding, cs.Name())
	if !c.lock.TryAcquire(tok) {
		return false, nil
	}
	if err := setter.SetEncoding(cs.Name()); err != nil {
		c.lock.ReleaseIf(tok)
		return false, err
	}

	log.Infof("switching encoding to %s", cs.Name())
	c.history.Clear()
	c.rebuild()
	c.setTarget(c.target)
	c.update()
	return true, nil
}

// ApplyEdit records an edit the user made to a materialized page.
func (c *Controller) ApplyEdit(e Edit) error {
	if c.state == StateClosed {
		return ErrClosed
	}
	if tok := c.lock.Active(); tok != nil && tok.Reason == Save {
		return ErrBusy
	}
	idx := c.indexOf(e.Page)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrPageNotMaterialized, e.Page)
	}
	if err := c.applyAt(idx, e); err != nil {
		return err
	}
	c.history.Record(e)
	c.update()
	return nil
}

// applyAt performs e on the materialized page at idx and journals the result.
func (c *Controller) applyAt(idx int, e Edit) error {
	p := c.pages[idx]
	text, err := e.apply(p.Text)
	if err != nil {
		return err
	}
	if err := c.journal.Put(p.Number, text); err != nil {
		return err
	}
	p = p.withText(text)
	c.pages[idx] = p
	c.sink.Replace(idx, p)
	return nil
}

// settle finishes the active intent once the window covers the viewport.
// It reports whether page content changed, which needs another pass.
func (c *Controller) settle() bool {
	tok := c.lock.Active()
	if tok == nil || tok.Reason == Save {
		return false
	}
	return c.finishIntent(tok)
}

// finishIntent completes tok's intent and releases it.
func (c *Controller) finishIntent(tok *AccessToken) (changed bool) {
	defer c.lock.ReleaseIf(tok)

	switch tok.Reason {
	case ShowSearchResult:
		start, _ := tok.Attachment(AttachResultStart)
		end, _ := tok.Attachment(AttachResultEnd)
		s, e := start.(SymbolPosition), end.(SymbolPosition)
		if !c.Contains(s) {
			log.Warningf("search result %v is outside the window", s)
			return false
		}
		c.view.Select(s, e)
		c.view.MoveCaret(e)
		if at, visible := c.placeSymbol(s); !visible {
			c.target = at
			return true
		}

	case Undo, Redo:
		v, _ := tok.Attachment(AttachEdit)
		edit := v.(Edit)
		idx := c.indexOf(edit.Page)
		if idx < 0 {
			log.Warningf("%s target page %d is not materialized", tok.Reason, edit.Page)
			return false
		}
		if err := c.applyAt(idx, edit); err != nil {
			log.Errorf("%s on page %d: %v", tok.Reason, edit.Page, err)
			return false
		}
		if tok.Reason == Undo {
			c.history.commitUndo()
		} else {
			c.history.commitRedo()
		}
		c.view.MoveCaret(edit.End())
		return true
	}
	return false
}

// placeSymbol reports whether pos is laid out inside the visible area, and
// the target that puts its row at the top of the view.
func (c *Controller) placeSymbol(pos SymbolPosition) (AbsolutePosition, bool) {
	idx := c.indexOf(pos.Page)
	if idx < 0 {
		return PageStart(pos.Page), false
	}
	row := 0
	if loc, ok := c.sink.(RowLocator); ok {
		row = loc.RowOf(idx, pos.Offset)
	}
	at := AbsolutePosition{Page: pos.Page, Offset: row}

	top := c.indexOf(c.target.Page)
	if top < 0 {
		return at, false
	}
	abs, first := row, c.target.Offset
	for j := 0; j < idx; j++ {
		abs += c.sink.PageExtent(j)
	}
	for j := 0; j < top; j++ {
		first += c.sink.PageExtent(j)
	}
	return at, abs >= first && abs < first+c.visible
}

// Contains reports whether pos lies inside the materialized window.
func (c *Controller) Contains(pos SymbolPosition) bool {
	if len(c.pages) == 0 {
		return false
	}
	last := c.pages[len(c.pages)-1]
	lo := Symbol(c.pages[0].Number, 0)
	hi := Symbol(last.Number, last.Len())
	return pos.GreaterOrEqual(lo) && pos.LessOrEqual(hi)
}

// Dirty reports whether the document has unsaved edits.
func (c *Controller) Dirty() (bool, error) {
	pages, err := c.journal.Pages()
	if err != nil {
		return false, err
	}
	return len(pages) > 0, nil
}

// CanUndo reports whether there is an edit to undo.
func (c *Controller) CanUndo() bool { return c.history.CanUndo() }

// CanRedo reports whether there is an edit to redo.
func (c *Controller) CanRedo() bool { return c.history.CanRedo() }

// Reload rebuilds the window from a freshly reloaded source.
func (c *Controller) Reload() error {
	if c.state == StateClosed {
		return ErrClosed
	}
	if c.save != nil {
		return ErrBusy
	}
	if r, ok := c.source.(Reloader); ok {
		if err := r.Reload(); err != nil {
			c.fail(fmt.Errorf("reloading: %w", err))
			return err
		}
	}
	log.Infof("reloading document")
	c.changeReported = false
	c.rebuild()
	c.setTarget(c.target)
	c.update()
	return nil
}

// WatchSource polls a FileSource for external changes. Unedited documents
// reload automatically; documents with edits report ErrSourceChanged
// through the state handler instead.
func (c *Controller) WatchSource(interval time.Duration) bool {
	fs, ok := c.source.(*FileSource)
	if !ok {
		return false
	}
	fs.Watch(interval, func(info SourceChangeInfo) {
		c.deliver(sourceChanged{info: info})
	})
	return true
}

func (c *Controller) onSourceChanged(m sourceChanged) {
	if c.state == StateClosed || c.save != nil {
		return
	}
	// The baseline only moves on Reload, so the watcher repeats a change
	// until then.
	if c.changeReported && m.info == c.lastChange {
		return
	}
	log.Infof("source %s (%d -> %d bytes)", m.info.Type, m.info.PreviousSize, m.info.CurrentSize)

	dirty, err := c.Dirty()
	if err != nil || dirty {
		c.lastChange, c.changeReported = m.info, true
		c.setState(c.state, fmt.Errorf("%w: %s", ErrSourceChanged, m.info.Type))
		return
	}
	c.Reload()
}

// Close tears the window down. Pending reads are abandoned, an in-flight
// save is cancelled and the access token is released.
func (c *Controller) Close() error {
	if c.state == StateClosed {
		return nil
	}
	if fs, ok := c.source.(*FileSource); ok {
		fs.Unwatch()
	}
	if c.save != nil {
		c.save.cancel()
	}

	c.generation++
	c.pages = nil
	c.cache = make(map[int64]Page)
	c.pending = make(map[int64]uint64)
	c.sink.Clear()
	c.lock.Release()
	c.setState(StateClosed, nil)

	if c.ownsJrnl {
		return c.journal.Close()
	}
	return nil
}

// State returns the controller state.
func (c *Controller) State() State { return c.state }

// Err returns the error that put the controller into StateError, if any.
func (c *Controller) Err() error { return c.err }

// Target returns the current (normalized) target position.
func (c *Controller) Target() AbsolutePosition { return c.target }

// PageCount returns the page count seen by the last update.
func (c *Controller) PageCount() int64 { return c.pageCount }

// ActiveToken returns the held access token, or nil.
func (c *Controller) ActiveToken() *AccessToken { return c.lock.Active() }

// Window returns the numbers of the materialized pages in order.
func (c *Controller) Window() []int64 {
	nums := make([]int64, len(c.pages))
	for i, p := range c.pages {
		nums[i] = p.Number
	}
	return nums
}

// Page returns materialized page n, including any unsaved edit.
func (c *Controller) Page(n int64) (Page, bool) {
	idx := c.indexOf(n)
	if idx < 0 {
		return Page{}, false
	}
	return c.pages[idx], true
}

// Pending returns the page numbers with outstanding reads, ascending.
func (c *Controller) Pending() []int64 {
	return sortedKeys(c.pending)
}

// Cached returns the page numbers in the prefetch cache, ascending.
func (c *Controller) Cached() []int64 {
	return sortedKeys(c.cache)
}
