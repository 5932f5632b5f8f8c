package folio

// counters accumulate window activity over the controller's lifetime.
type counters struct {
	reads     int64
	cacheHits int64
	evictions int64
	resets    int64
}

// Stats describes the memory held by a Controller and its activity so far.
type Stats struct {
	MaterializedPages int   // pages in the window
	MaterializedBytes int64 // bytes of text in the window
	CachedPages       int   // pages in the prefetch cache
	CachedBytes       int64 // bytes of text in the prefetch cache
	PendingReads      int   // reads requested but not yet delivered
	DirtyPages        int   // pages with unsaved edits

	Reads     int64 // reads requested
	CacheHits int64 // pages taken from the prefetch cache instead of read
	Evictions int64 // trailing pages trimmed from the window
	Resets    int64 // times the window was discarded and rebuilt

	Generation uint64
}

// Stats returns current memory usage and activity counters.
func (c *Controller) Stats() Stats {
	s := Stats{
		MaterializedPages: len(c.pages),
		CachedPages:       len(c.cache),
		PendingReads:      len(c.pending),
		Reads:             c.stats.reads,
		CacheHits:         c.stats.cacheHits,
		Evictions:         c.stats.evictions,
		Resets:            c.stats.resets,
		Generation:        c.generation,
	}
	for _, p := range c.pages {
		s.MaterializedBytes += int64(len(p.Text))
	}
	for _, p := range c.cache {
		s.CachedBytes += int64(len(p.Text))
	}
	if dirty, err := c.journal.Pages(); err == nil {
		s.DirtyPages = len(dirty)
	}
	return s
}
