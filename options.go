package folio

import (
	"fmt"
	"strings"
)

// Defaults applied by Options.withDefaults for zero-valued fields.
const (
	DefaultPageSize               = 64 * 1024
	DefaultMaxPageBoundaryShift   = 1024
	DefaultPrefetchLookaheadPages = 1
	DefaultLeadingPages           = 1
	DefaultHistoryLimit           = 100
	DefaultEncoding               = "utf-8"
)

// Options configures paging granularity and window tolerances.
type Options struct {
	// PageSize is the nominal number of bytes per page.
	PageSize int64

	// MaxPageBoundaryShift is how far a page boundary may move forward to
	// land on a line or character boundary. Must be smaller than PageSize.
	MaxPageBoundaryShift int64

	// PrefetchLookaheadPages is how many pages past the visible area are
	// kept materialized.
	PrefetchLookaheadPages int

	// LeadingPages is how many pages before the target page the window may
	// start at before it is considered invalid and rebuilt.
	LeadingPages int

	// HistoryLimit bounds the number of undoable edits.
	HistoryLimit int

	// Encoding is the charset name used to decode pages (e.g. "utf-8",
	// "windows-1252", "utf-16le").
	Encoding string

	// FileSystem is used by FileSource; nil means the local file system.
	FileSystem FileSystemInterface
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.PageSize == 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPageBoundaryShift == 0 && o.PageSize > DefaultMaxPageBoundaryShift {
		o.MaxPageBoundaryShift = DefaultMaxPageBoundaryShift
	}
	if o.PrefetchLookaheadPages == 0 {
		o.PrefetchLookaheadPages = DefaultPrefetchLookaheadPages
	}
	if o.LeadingPages == 0 {
		o.LeadingPages = DefaultLeadingPages
	}
	if o.HistoryLimit == 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.Encoding == "" {
		o.Encoding = DefaultEncoding
	}
	if o.FileSystem == nil {
		o.FileSystem = &localFileSystem{}
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	switch {
	case o.PageSize < 1:
		return fmt.Errorf("%w: page size %d", ErrInvalidOptions, o.PageSize)
	case o.PageSize%2 != 0 && strings.HasPrefix(strings.ToLower(o.Encoding), "utf-16"):
		return fmt.Errorf("%w: page size %d must be even for %s", ErrInvalidOptions, o.PageSize, o.Encoding)
	case o.MaxPageBoundaryShift < 0 || o.MaxPageBoundaryShift >= o.PageSize:
		return fmt.Errorf("%w: boundary shift %d must be in [0, %d)", ErrInvalidOptions, o.MaxPageBoundaryShift, o.PageSize)
	case o.PrefetchLookaheadPages < 1:
		return fmt.Errorf("%w: lookahead %d must be at least 1", ErrInvalidOptions, o.PrefetchLookaheadPages)
	case o.LeadingPages < 1:
		return fmt.Errorf("%w: leading pages %d must be at least 1", ErrInvalidOptions, o.LeadingPages)
	case o.HistoryLimit < 0:
		return fmt.Errorf("%w: history limit %d", ErrInvalidOptions, o.HistoryLimit)
	}
	if _, err := LookupEncoding(o.Encoding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}
