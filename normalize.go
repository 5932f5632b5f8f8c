package folio

// windowValid reports whether the window can be kept for the current
// target: it must start no more than LeadingPages before the target page and
// not after it, and a negative offset needs the previous page in the window.
func (c *Controller) windowValid() bool {
	first := c.pages[0].Number
	tp := c.target.Page

	if first > tp || first < tp-int64(c.opts.LeadingPages) {
		return false
	}
	if c.target.Offset < 0 && tp > 0 && first == tp {
		return false
	}
	return true
}

// normalize corrects the target until its offset falls inside its page and
// the visible area does not run past the end of the document. It returns
// false when a neighbouring page it needs is not materialized yet.
func (c *Controller) normalize() bool {
	limit := 2*len(c.pages) + 4
	for i := 0; i < limit; i++ {
		idx := c.indexOf(c.target.Page)
		if idx < 0 {
			return false
		}
		extent := c.sink.PageExtent(idx)

		switch {
		case c.target.Offset < 0 && c.target.Page == 0:
			c.target.Offset = 0
			continue

		case c.target.Offset < 0:
			if idx == 0 {
				return false
			}
			c.target.Page--
			c.target.Offset += c.sink.PageExtent(idx - 1)
			continue

		case c.target.Offset >= extent && (extent > 0 || c.target.Offset > 0) && !c.pages[idx].IsLast:
			if idx+1 >= len(c.pages) {
				return false
			}
			c.target.Offset -= extent
			c.target.Page++
			continue
		}

		if c.clampToEnd(idx) {
			continue
		}
		return true
	}
	return true
}

// clampToEnd shrinks the target offset when the window reaches the end of
// the file and the visible area would extend past it. It reports whether the
// target changed.
func (c *Controller) clampToEnd(idx int) bool {
	if !c.pages[len(c.pages)-1].IsLast {
		return false
	}

	rest := 0
	for j := idx; j < len(c.pages); j++ {
		rest += c.sink.PageExtent(j)
	}
	maxOffset := rest - c.visible
	if c.target.Offset <= maxOffset {
		return false
	}

	if maxOffset < 0 && c.target.Page == 0 {
		if c.target.Offset == 0 {
			return false
		}
		c.target.Offset = 0
		return true
	}
	c.target.Offset = maxOffset
	return true
}

// coverage counts the pages, starting at the target page, needed to fill
// the visible extent. covered is false when the window runs out first.
func (c *Controller) coverage() (covered bool, pages int) {
	idx := c.indexOf(c.target.Page)
	if idx < 0 {
		return false, 0
	}

	remaining := c.target.Offset + c.visible
	for j := idx; j < len(c.pages); j++ {
		pages++
		remaining -= c.sink.PageExtent(j)
		if remaining <= 0 || c.pages[j].IsLast {
			return true, pages
		}
	}
	return false, pages
}
