// Package folio provides a paged virtual-document engine that presents and
// edits files far larger than memory through a bounded sliding window of pages.
package folio

import "errors"

// Page errors
var (
	// ErrPageOutOfRange indicates that a page number is outside the document.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrPageNotMaterialized indicates that an operation needs a page that is
	// not currently in the window.
	ErrPageNotMaterialized = errors.New("page not materialized")

	// ErrReadFailed indicates that the page source could not supply a page.
	ErrReadFailed = errors.New("page read failed")
)

// Edit errors
var (
	// ErrEditMismatch indicates that the text an edit claims to remove is not
	// present at the edit position.
	ErrEditMismatch = errors.New("edit does not match page content")

	// ErrInvalidPosition indicates that a symbol offset is out of bounds.
	ErrInvalidPosition = errors.New("position out of bounds")

	// ErrUnsavedChanges indicates that the document has edits that have not
	// been saved.
	ErrUnsavedChanges = errors.New("document has unsaved changes")
)

// Journal errors
var (
	// ErrJournalFailure indicates that the dirty-page journal could not
	// store or retrieve a page.
	ErrJournalFailure = errors.New("journal operation failed")
)

// Save errors
var (
	// ErrSaveCancelled indicates that a save was cancelled and rolled back.
	ErrSaveCancelled = errors.New("save cancelled")

	// ErrNoSavePath indicates that the page source has no file to save to.
	ErrNoSavePath = errors.New("no file to save to")
)

// Encoding errors
var (
	// ErrUnknownEncoding indicates that an encoding name is not recognized.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// File system errors
var (
	// ErrNotSupported indicates that an optional file system operation is not supported.
	ErrNotSupported = errors.New("operation not supported")

	// ErrFileNotOpen indicates that the file handle is not open.
	ErrFileNotOpen = errors.New("file not open")

	// ErrSourceClosed indicates that the page source has been closed.
	ErrSourceClosed = errors.New("page source closed")
)

// Controller errors
var (
	// ErrClosed indicates that the controller has been closed.
	ErrClosed = errors.New("document closed")

	// ErrBusy indicates that another intent holds the access token.
	ErrBusy = errors.New("operation not allowed right now")

	// ErrSourceChanged indicates that the underlying file changed on disk
	// while the document had unsaved edits.
	ErrSourceChanged = errors.New("source file changed")

	// ErrInternal indicates an internal consistency error (should not happen).
	ErrInternal = errors.New("internal error")
)

// Configuration errors
var (
	// ErrInvalidOptions indicates that Options failed validation.
	ErrInvalidOptions = errors.New("invalid options")
)
