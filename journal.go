package folio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Journal stores the text of edited pages until they are saved. Pages read
// from the source are overlaid with journal text, so edits survive eviction.
type Journal interface {
	Put(page int64, text string) error
	// Get returns the edited text of page, or ok=false if it was never edited.
	Get(page int64) (text string, ok bool, err error)
	Delete(page int64) error
	// Pages lists edited page numbers in ascending order.
	Pages() ([]int64, error)
	Clear() error
	Close() error
}

// memoryJournal keeps edited pages in a map.
type memoryJournal struct {
	mu    sync.Mutex
	pages map[int64]string
}

// NewMemoryJournal returns a Journal held entirely in memory.
func NewMemoryJournal() Journal {
	return &memoryJournal{pages: make(map[int64]string)}
}

func (j *memoryJournal) Put(page int64, text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pages[page] = text
	return nil
}

func (j *memoryJournal) Get(page int64) (string, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	text, ok := j.pages[page]
	return text, ok, nil
}

func (j *memoryJournal) Delete(page int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.pages, page)
	return nil
}

func (j *memoryJournal) Pages() ([]int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return sortedKeys(j.pages), nil
}

func (j *memoryJournal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pages = make(map[int64]string)
	return nil
}

func (j *memoryJournal) Close() error {
	return j.Clear()
}

// fsJournal spills edited pages to files under basePath/folder, one block
// per page, through a FileSystemInterface.
type fsJournal struct {
	fs       FileSystemInterface
	basePath string
	folder   string

	mu    sync.Mutex
	index map[int64]struct{}
}

// NewFSJournal returns a Journal that writes each edited page to its own
// file. folder should be unique per open document.
func NewFSJournal(fs FileSystemInterface, basePath, folder string) Journal {
	if fs == nil {
		fs = &localFileSystem{}
	}
	return &fsJournal{
		fs:       fs,
		basePath: basePath,
		folder:   folder,
		index:    make(map[int64]struct{}),
	}
}

func (j *fsJournal) blockPath(page int64) string {
	return filepath.Join(j.basePath, j.folder, fmt.Sprintf("page-%d", page))
}

func (j *fsJournal) Put(page int64, text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.fs.MkdirAll(filepath.Join(j.basePath, j.folder)); err != nil {
		return fmt.Errorf("%w: %v", ErrJournalFailure, err)
	}
	if err := j.fs.WriteFile(j.blockPath(page), []byte(text)); err != nil {
		return fmt.Errorf("%w: %v", ErrJournalFailure, err)
	}
	j.index[page] = struct{}{}
	return nil
}

func (j *fsJournal) Get(page int64) (string, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.index[page]; !ok {
		return "", false, nil
	}
	data, err := j.fs.ReadFile(j.blockPath(page))
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrJournalFailure, err)
	}
	return string(data), true, nil
}

func (j *fsJournal) Delete(page int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.deleteLocked(page)
}

func (j *fsJournal) deleteLocked(page int64) error {
	if _, ok := j.index[page]; !ok {
		return nil
	}
	delete(j.index, page)
	if err := j.fs.Remove(j.blockPath(page)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrJournalFailure, err)
	}
	return nil
}

func (j *fsJournal) Pages() ([]int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return sortedKeys(j.index), nil
}

func (j *fsJournal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var firstErr error
	for page := range j.index {
		if err := j.deleteLocked(page); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (j *fsJournal) Close() error {
	if err := j.Clear(); err != nil {
		return err
	}
	// The folder is removed only when empty.
	j.fs.Remove(filepath.Join(j.basePath, j.folder))
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })
	return keys
}
