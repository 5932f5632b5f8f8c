package folio

import (
	"os"
	"sync"
	"syscall"
	"time"
)

// SourceChangeType indicates the type of change detected in the source file.
type SourceChangeType int

const (
	// SourceUnchanged indicates no change was detected.
	SourceUnchanged SourceChangeType = iota

	// SourceAppended indicates the file grew.
	SourceAppended

	// SourceModified indicates the file kept its size but its mtime moved.
	SourceModified

	// SourceTruncated indicates the file was shortened.
	SourceTruncated

	// SourceReplaced indicates the file was replaced (different inode).
	SourceReplaced

	// SourceDeleted indicates the file no longer exists.
	SourceDeleted
)

// String returns a human-readable description of the change type.
func (t SourceChangeType) String() string {
	switch t {
	case SourceUnchanged:
		return "unchanged"
	case SourceAppended:
		return "appended"
	case SourceModified:
		return "modified"
	case SourceTruncated:
		return "truncated"
	case SourceReplaced:
		return "replaced"
	case SourceDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// SourceChangeInfo contains details about a detected source file change.
type SourceChangeInfo struct {
	Type          SourceChangeType
	PreviousSize  int64
	CurrentSize   int64
	AppendedBytes int64 // only valid if Type == SourceAppended
}

// SourceChangeHandler is called from the watch goroutine when a change is
// detected.
type SourceChangeHandler func(info SourceChangeInfo)

// sourceState tracks file metadata for change detection.
type sourceState struct {
	mtime time.Time
	size  int64
	inode uint64

	watchStop chan struct{}
	watchWg   sync.WaitGroup
	watchMu   sync.Mutex
}

func (s *FileSource) captureSourceInfo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureSourceInfoLocked()
}

func (s *FileSource) captureSourceInfoLocked() error {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		return err
	}
	s.source.mtime = info.ModTime()
	s.source.size = info.Size()
	s.source.inode = getInode(info)
	return nil
}

// getInode extracts the inode number from file info (Unix only).
func getInode(info os.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Ino
	}
	return 0
}

// CheckChange compares the file's current metadata against what was
// captured at open or the last Reload. It only stats the file.
func (s *FileSource) CheckChange() (SourceChangeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.source
	info, err := s.fs.Stat(s.path)
	if os.IsNotExist(err) {
		return SourceChangeInfo{Type: SourceDeleted, PreviousSize: prev.size}, nil
	}
	if err != nil {
		return SourceChangeInfo{}, err
	}

	result := SourceChangeInfo{
		Type:         SourceUnchanged,
		PreviousSize: prev.size,
		CurrentSize:  info.Size(),
	}

	inode := getInode(info)
	switch {
	case prev.inode != 0 && inode != 0 && prev.inode != inode:
		result.Type = SourceReplaced
	case info.Size() < prev.size:
		result.Type = SourceTruncated
	case info.Size() > prev.size:
		result.Type = SourceAppended
		result.AppendedBytes = info.Size() - prev.size
	case !info.ModTime().Equal(prev.mtime):
		result.Type = SourceModified
	}
	return result, nil
}

// Watch polls the file every interval and calls handler for each change
// found. The baseline is not advanced until Reload, so a change keeps being
// reported until the owner reacts to it.
func (s *FileSource) Watch(interval time.Duration, handler SourceChangeHandler) {
	st := s.source
	st.watchMu.Lock()
	defer st.watchMu.Unlock()

	if st.watchStop != nil {
		return
	}
	st.watchStop = make(chan struct{})
	stop := st.watchStop
	st.watchWg.Add(1)

	go func() {
		defer st.watchWg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				info, err := s.CheckChange()
				if err != nil {
					log.Warningf("checking %s: %v", s.path, err)
					continue
				}
				if info.Type != SourceUnchanged && handler != nil {
					handler(info)
				}
			}
		}
	}()
}

// Unwatch stops a watch started with Watch.
func (s *FileSource) Unwatch() {
	st := s.source
	st.watchMu.Lock()
	defer st.watchMu.Unlock()

	if st.watchStop == nil {
		return
	}
	close(st.watchStop)
	st.watchWg.Wait()
	st.watchStop = nil
}
