package folio

import (
	"fmt"
	"math"
)

// State is the coarse status of a Controller.
type State int

const (
	// StateIdle means no update has run yet.
	StateIdle State = iota

	// StateLoading means the window is waiting for at least one page read.
	StateLoading

	// StateReady means the window covers the viewport.
	StateReady

	// StateError means the last update cycle aborted on a read failure.
	StateError

	// StateClosed means the document view was closed.
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateHandler is notified on the controller's context whenever the state
// or its error changes.
type StateHandler func(state State, err error)

// SaveHandler is notified on the controller's context when a save finishes.
// err is nil on success and wraps ErrSaveCancelled after CancelSave.
type SaveHandler func(err error)

// Config wires a Controller to its collaborators.
type Config struct {
	Source   PageSource
	Sink     BufferSink
	Viewport Viewport
	Executor Executor

	// Journal stores edited pages; nil uses an in-memory journal owned by
	// the controller.
	Journal Journal

	Options Options
}

// Controller owns the sliding window of materialized pages. It keeps the
// window consistent with the target position and the viewport extent while
// bounding how many pages are held.
//
// A Controller is not safe for concurrent use: every method must be called
// from the context of its Executor. Read completions and save results are
// delivered there as messages.
type Controller struct {
	opts     Options
	source   PageSource
	sink     BufferSink
	view     Viewport
	exec     Executor
	journal  Journal
	ownsJrnl bool
	history  *History
	lock     TokenLock

	// Window state
	pages      []Page
	cache      map[int64]Page
	pending    map[int64]uint64 // page -> generation that requested it
	target     AbsolutePosition
	visible    int
	pageCount  int64
	generation uint64

	state   State
	err     error
	onState StateHandler
	onSave  SaveHandler

	save  *saveJob
	stats counters

	// Last external change reported while the document had edits.
	lastChange     SourceChangeInfo
	changeReported bool
}

// NewController creates a controller with an empty window. Nothing is read
// until the first SetTargetPosition, TrySwitchToPage or OnViewportResized.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Source == nil || cfg.Sink == nil || cfg.Viewport == nil || cfg.Executor == nil {
		return nil, fmt.Errorf("%w: source, sink, viewport and executor are required", ErrInvalidOptions)
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	opts := cfg.Options.withDefaults()

	c := &Controller{
		opts:    opts,
		source:  cfg.Source,
		sink:    cfg.Sink,
		view:    cfg.Viewport,
		exec:    cfg.Executor,
		journal: cfg.Journal,
		history: NewHistory(opts.HistoryLimit),
		cache:   make(map[int64]Page),
		pending: make(map[int64]uint64),
	}
	if c.journal == nil {
		c.journal = NewMemoryJournal()
		c.ownsJrnl = true
	}
	return c, nil
}

// message is an event delivered onto the controller's context.
type message interface{}

type pageLoaded struct {
	generation uint64
	number     int64
	page       Page
	err        error
}

type saveFinished struct {
	job *saveJob
	err error
}

type sourceChanged struct {
	info SourceChangeInfo
}

// deliver posts m onto the controller's context.
func (c *Controller) deliver(m message) {
	c.exec.Post(func() { c.handle(m) })
}

func (c *Controller) handle(m message) {
	switch m := m.(type) {
	case pageLoaded:
		c.onPageLoaded(m)
	case saveFinished:
		c.onSaveFinished(m)
	case sourceChanged:
		c.onSourceChanged(m)
	}
}

func (c *Controller) onPageLoaded(m pageLoaded) {
	if c.state == StateClosed {
		return
	}
	if m.generation != c.generation {
		// The page may still be wanted; it could not be requested again
		// while this read was in flight.
		if gen, ok := c.pending[m.number]; ok && gen == m.generation {
			delete(c.pending, m.number)
			if c.state != StateError {
				c.update()
			}
		}
		return
	}
	delete(c.pending, m.number)

	if m.err != nil {
		c.fail(fmt.Errorf("reading page %d: %w", m.number, m.err))
		return
	}

	p, err := c.overlay(m.page)
	if err != nil {
		c.fail(err)
		return
	}
	c.cache[p.Number] = p
	if c.state == StateError {
		return
	}
	c.update()
}

// overlay replaces a page's text with its journaled edit, if any.
func (c *Controller) overlay(p Page) (Page, error) {
	text, ok, err := c.journal.Get(p.Number)
	if err != nil {
		return p, err
	}
	if ok {
		return p.withText(text), nil
	}
	return p, nil
}

// request issues an asynchronous read unless one is already outstanding,
// including one issued before the last rebuild.
func (c *Controller) request(n int64) {
	if _, ok := c.pending[n]; ok {
		return
	}
	c.pending[n] = c.generation
	c.stats.reads++
	gen := c.generation

	log.Debugf("requesting page %d", n)
	c.source.RequestRead(n, func(p Page, err error) {
		c.deliver(pageLoaded{generation: gen, number: n, page: p, err: err})
	})
}

// fail aborts the current cycle. Any held token other than an in-flight
// save is released; the save releases its own token when it finishes.
func (c *Controller) fail(err error) {
	log.Errorf("%v", err)
	if tok := c.lock.Active(); tok != nil && tok.Reason != Save {
		c.lock.ReleaseIf(tok)
	}
	c.setState(StateError, err)
}

func (c *Controller) setState(s State, err error) {
	if c.state == s && c.err == err {
		return
	}
	c.state = s
	c.err = err
	if c.onState != nil {
		c.onState(s, err)
	}
}

// takeCached removes page n from the prefetch cache.
func (c *Controller) takeCached(n int64) (Page, bool) {
	p, ok := c.cache[n]
	if ok {
		delete(c.cache, n)
		c.stats.cacheHits++
	}
	return p, ok
}

// appendPage adds p to the end of the window and the sink.
func (c *Controller) appendPage(p Page) {
	if n := len(c.pages); n > 0 && p.Number != c.pages[n-1].Number+1 {
		panic(fmt.Errorf("%w: appending page %d after page %d", ErrInternal, p.Number, c.pages[n-1].Number))
	}
	c.pages = append(c.pages, p)
	c.sink.Append(p)
}

// resetWindow clears the window and the sink. Materialized pages near the
// target are kept in the prefetch cache; the rest of the cache is dropped.
func (c *Controller) resetWindow() {
	if len(c.pages) == 0 {
		return
	}
	log.Debugf("resetting window %d-%d for target %v", c.pages[0].Number, c.pages[len(c.pages)-1].Number, c.target)
	for _, p := range c.pages {
		c.cache[p.Number] = p
	}
	c.pages = nil
	c.sink.Clear()
	c.stats.resets++

	lo := c.target.Page - int64(c.opts.LeadingPages)
	hi := c.target.Page + int64(c.opts.PrefetchLookaheadPages)
	for n := range c.cache {
		if n < lo || n > hi {
			delete(c.cache, n)
		}
	}
}

// trimTo evicts trailing pages until at most keep remain.
func (c *Controller) trimTo(keep int) {
	for len(c.pages) > keep {
		last := c.pages[len(c.pages)-1]
		c.cache[last.Number] = last
		c.pages = c.pages[:len(c.pages)-1]
		c.sink.RemoveLast()
		c.stats.evictions++
	}
}

func (c *Controller) dropCache() {
	if len(c.cache) > 0 {
		c.cache = make(map[int64]Page)
	}
}

// rebuild discards the window and the cache. Reads issued before the
// rebuild stay pending until they arrive, and their results are ignored.
func (c *Controller) rebuild() {
	c.generation++
	c.cache = make(map[int64]Page)
	if len(c.pages) > 0 {
		c.pages = nil
		c.sink.Clear()
	}
	c.stats.resets++
}

// indexOf returns the window index of page n, or -1.
func (c *Controller) indexOf(n int64) int {
	if len(c.pages) == 0 {
		return -1
	}
	i := n - c.pages[0].Number
	if i < 0 || i >= int64(len(c.pages)) {
		return -1
	}
	return int(i)
}

// maxCycles bounds the update loop; every cycle either appends a page or
// stops, so this is only hit if an invariant is broken.
const maxCycles = 1 << 16

// update brings the window in line with the target position. It returns
// early whenever a needed page has to be read; the read completion calls it
// again from the top.
func (c *Controller) update() {
	if c.state == StateClosed {
		return
	}
	for i := 0; c.cycle(); i++ {
		if i >= maxCycles {
			log.Errorf("update did not settle after %d cycles", i)
			return
		}
	}
}

// cycle runs one pass of the window algorithm and reports whether another
// pass is needed right away.
func (c *Controller) cycle() bool {
	count, err := c.source.PageCount()
	if err != nil {
		c.fail(fmt.Errorf("counting pages: %w", err))
		return false
	}
	c.pageCount = count

	if count == 0 {
		c.resetWindow()
		c.dropCache()
		c.target = AbsolutePosition{}
		c.view.SetScrollbar(ScrollMetrics{})
		c.view.ScrollTo(0)
		c.setState(StateReady, nil)
		c.settle()
		return false
	}
	c.clampTarget(count)

	if len(c.pages) > 0 && !c.windowValid() {
		c.resetWindow()
	}

	if len(c.pages) == 0 {
		first := c.target.Page
		if c.target.Offset < 0 && first > 0 {
			first--
		}
		p, ok := c.takeCached(first)
		if !ok {
			c.request(first)
			c.setState(StateLoading, nil)
			return false
		}
		c.appendPage(p)
	}

	c.normalize()
	if !c.windowValid() {
		// The target walked out of tolerance; the next pass rebuilds the
		// window around it.
		return true
	}

	covered, coverage := c.coverage()
	keep := len(c.pages)
	if covered {
		keep = c.indexOf(c.target.Page) + coverage + c.opts.PrefetchLookaheadPages
		c.trimTo(keep)
	}

	c.refreshViewport()

	if covered {
		c.setState(StateReady, nil)
		if c.settle() {
			return true
		}
	}

	last := c.pages[len(c.pages)-1]
	if !last.IsLast && last.Number+1 < count && (!covered || len(c.pages) < keep) {
		next := last.Number + 1
		if p, ok := c.takeCached(next); ok {
			c.appendPage(p)
			return true
		}
		c.request(next)
		if !covered {
			c.setState(StateLoading, nil)
		}
		return false
	}

	c.dropCache()
	return false
}

// endOffset marks a target clamped to the end of the document; the
// normalization pass shrinks it to the real end.
const endOffset = math.MaxInt32

// clampTarget keeps the target inside the document. A target past the last
// page becomes the end of the last page.
func (c *Controller) clampTarget(count int64) {
	switch {
	case c.target.Page < 0:
		c.target = AbsolutePosition{}
	case c.target.Page >= count:
		c.target = AbsolutePosition{Page: count - 1, Offset: endOffset}
	}
}

// refreshViewport updates the scrollbar model and scroll offset.
func (c *Controller) refreshViewport() {
	c.view.SetScrollbar(ScrollMetrics{PageCount: c.pageCount, Page: c.target.Page})

	idx := c.indexOf(c.target.Page)
	if idx < 0 {
		return
	}
	off := c.target.Offset
	for j := 0; j < idx; j++ {
		off += c.sink.PageExtent(j)
	}
	c.view.ScrollTo(off)
}
