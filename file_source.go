package folio

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// FileSource is a PageSource over a file. Page n nominally starts at byte
// n*PageSize; its boundary may move forward by up to MaxPageBoundaryShift
// bytes so that pages end on a line break, or at least never split a
// character.
type FileSource struct {
	fs       FileSystemInterface
	path     string
	pageSize int64
	maxShift int64

	mu      sync.Mutex // guards everything below
	handle  FileHandle
	size    int64
	charset *Charset
	bounds  map[int64]int64
	closed  bool

	// Reads requested asynchronously run one at a time on this worker.
	worker *Loop

	source *sourceState
}

// OpenFileSource opens path for paged reading.
func OpenFileSource(path string, opts Options) (*FileSource, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	charset, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	s := &FileSource{
		fs:       opts.FileSystem,
		path:     path,
		pageSize: opts.PageSize,
		maxShift: opts.MaxPageBoundaryShift,
		charset:  charset,
		bounds:   make(map[int64]int64),
		source:   &sourceState{},
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	if err := s.captureSourceInfo(); err != nil {
		s.fs.Close(s.handle)
		return nil, err
	}
	s.worker = NewLoop()

	log.Debugf("opened %s: %d bytes, %d byte pages, %s", path, s.size, s.pageSize, charset.Name())
	return s, nil
}

// open (re)opens the file handle and records its size. Caller must hold mu
// or own s exclusively.
func (s *FileSource) open() error {
	h, err := s.fs.Open(s.path, OpenModeRead)
	if err != nil {
		return err
	}
	size, err := s.fs.FileSize(h)
	if err != nil {
		s.fs.Close(h)
		return err
	}
	if s.handle != nil {
		s.fs.Close(s.handle)
	}
	s.handle = h
	s.size = size
	s.bounds = make(map[int64]int64)
	return nil
}

// Path returns the file path.
func (s *FileSource) Path() string {
	return s.path
}

// FileSystem returns the file system the source reads through.
func (s *FileSource) FileSystem() FileSystemInterface {
	return s.fs
}

// Size returns the file size in bytes as of the last open or reload.
func (s *FileSource) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Charset returns the charset pages are decoded with.
func (s *FileSource) Charset() *Charset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.charset
}

// SetEncoding switches the decoder used for subsequent reads.
func (s *FileSource) SetEncoding(name string) error {
	cs, err := LookupEncoding(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.charset = cs
	s.bounds = make(map[int64]int64)
	return nil
}

// Reload reopens the file, picking up a new size or a replaced file.
func (s *FileSource) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}
	if err := s.open(); err != nil {
		return err
	}
	return s.captureSourceInfoLocked()
}

// PageCount returns the number of pages in the file.
func (s *FileSource) PageCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSourceClosed
	}
	return s.pageCountLocked(), nil
}

func (s *FileSource) pageCountLocked() int64 {
	if s.size == 0 {
		return 0
	}
	return (s.size + s.pageSize - 1) / s.pageSize
}

// ReadPage reads and decodes page n.
func (s *FileSource) ReadPage(n int64) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, count, err := s.pageBytesLocked(n)
	if err != nil {
		return Page{}, err
	}
	text, err := s.charset.Decode(data)
	if err != nil {
		return Page{}, fmt.Errorf("%w: page %d: %v", ErrReadFailed, n, err)
	}
	return Page{Number: n, Text: text, IsLast: n == count-1}, nil
}

// RawPage returns the undecoded bytes of page n.
func (s *FileSource) RawPage(n int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := s.pageBytesLocked(n)
	return data, err
}

func (s *FileSource) pageBytesLocked(n int64) ([]byte, int64, error) {
	if s.closed {
		return nil, 0, ErrSourceClosed
	}
	count := s.pageCountLocked()
	if n < 0 || n >= count {
		return nil, count, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, n, count)
	}

	start, err := s.boundaryLocked(n)
	if err != nil {
		return nil, count, fmt.Errorf("%w: page %d: %v", ErrReadFailed, n, err)
	}
	end, err := s.boundaryLocked(n + 1)
	if err != nil {
		return nil, count, fmt.Errorf("%w: page %d: %v", ErrReadFailed, n, err)
	}
	data, err := s.readRangeLocked(start, end-start)
	if err != nil {
		return nil, count, fmt.Errorf("%w: page %d: %v", ErrReadFailed, n, err)
	}
	return data, count, nil
}

// RequestRead reads page n on the source's worker and reports the result
// through done.
func (s *FileSource) RequestRead(n int64, done func(Page, error)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go done(Page{}, ErrSourceClosed)
		return
	}
	s.worker.Post(func() {
		p, err := s.ReadPage(n)
		done(p, err)
	})
	s.mu.Unlock()
}

// Close stops the read worker and closes the file. Reads already queued
// complete with ErrSourceClosed.
func (s *FileSource) Close() error {
	s.Unwatch()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.worker.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Close(s.handle)
}

func (s *FileSource) readRangeLocked(start, length int64) ([]byte, error) {
	if length <= 0 {
		return nil, nil
	}
	if err := s.fs.SeekByte(s.handle, start); err != nil {
		return nil, err
	}
	return s.fs.ReadBytes(s.handle, int(length))
}

// boundaryLocked returns the byte offset where page n starts.
func (s *FileSource) boundaryLocked(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	if n >= s.pageCountLocked() {
		return s.size, nil
	}
	if b, ok := s.bounds[n]; ok {
		return b, nil
	}

	unit := s.charset.unit
	nominal := n * s.pageSize
	nominal -= nominal % unit

	b := nominal
	if s.maxShift > 0 {
		limit := nominal + s.maxShift
		if limit > s.size {
			limit = s.size
		}
		window, err := s.readRangeLocked(nominal, limit-nominal)
		if err != nil {
			return 0, err
		}
		b = nominal + s.shiftWithin(window)
		if b >= s.size {
			b = nominal
		}
	}

	s.bounds[n] = b
	return b, nil
}

// shiftWithin returns how far into window the boundary should move.
func (s *FileSource) shiftWithin(window []byte) int64 {
	if s.charset.unit == 2 {
		return shiftUTF16(window, strings.HasSuffix(s.charset.name, "be"))
	}

	if i := bytes.IndexByte(window, '\n'); i >= 0 {
		return int64(i + 1)
	}
	if s.charset.IsUTF8() {
		i := 0
		for i < len(window) && i < utf8.UTFMax && !utf8.RuneStart(window[i]) {
			i++
		}
		return int64(i)
	}
	return 0
}

// shiftUTF16 finds the code unit after the first newline in window, or skips
// a low surrogate so that a pair is never split.
func shiftUTF16(window []byte, bigEndian bool) int64 {
	unit := func(i int) uint16 {
		if bigEndian {
			return uint16(window[i])<<8 | uint16(window[i+1])
		}
		return uint16(window[i+1])<<8 | uint16(window[i])
	}

	for i := 0; i+1 < len(window); i += 2 {
		if unit(i) == '\n' {
			return int64(i + 2)
		}
	}
	if len(window) >= 2 {
		if u := unit(0); u >= 0xDC00 && u <= 0xDFFF {
			return 2
		}
	}
	return 0
}
