package folio

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// SaveTarget is a PageSource backed by a file that can be rewritten.
type SaveTarget interface {
	PageSource
	Path() string
	FileSystem() FileSystemInterface
	Charset() *Charset
	// RawPage returns page n exactly as stored, so unedited pages are
	// copied without a decode and re-encode round trip.
	RawPage(n int64) ([]byte, error)
	Reload() error
}

// saveSuffix names the temporary file a save writes before renaming it over
// the original.
const saveSuffix = ".folio-save"

type saveJob struct {
	tok    *AccessToken
	cancel context.CancelFunc
}

// TrySave writes the document, with every journaled edit, back to its file.
// It returns false when the source cannot be saved or another intent holds
// the access token. The result is reported through the SaveHandler.
func (c *Controller) TrySave() bool {
	if c.state == StateClosed || c.save != nil {
		return false
	}
	target, ok := c.source.(SaveTarget)
	if !ok {
		log.Warningf("save: %v", ErrNoSavePath)
		return false
	}

	tok := NewToken(Save, -1)
	if !c.lock.TryAcquire(tok) {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &saveJob{tok: tok, cancel: cancel}
	c.save = job

	log.Infof("saving %s", target.Path())
	journal := c.journal
	go func() {
		err := writeDocument(ctx, target, journal)
		cancel()
		c.deliver(saveFinished{job: job, err: err})
	}()
	return true
}

// CancelSave aborts an in-flight save. The original file is left untouched.
func (c *Controller) CancelSave() bool {
	if c.save == nil {
		return false
	}
	c.save.cancel()
	return true
}

// Saving reports whether a save is in flight.
func (c *Controller) Saving() bool {
	return c.save != nil
}

func (c *Controller) onSaveFinished(m saveFinished) {
	if c.save == m.job {
		c.save = nil
	}
	c.lock.ReleaseIf(m.job.tok)

	if c.state == StateClosed {
		return
	}

	if m.err != nil {
		if errors.Is(m.err, ErrSaveCancelled) {
			log.Infof("save cancelled")
		} else {
			log.Errorf("save: %v", m.err)
		}
		if c.onSave != nil {
			c.onSave(m.err)
		}
		c.update()
		return
	}

	if err := c.journal.Clear(); err != nil {
		log.Errorf("clearing journal after save: %v", err)
	}
	c.history.Clear()
	log.Infof("save complete")

	if c.onSave != nil {
		c.onSave(nil)
	}
	c.Reload()
}

// writeDocument streams every page of target into a temporary file and
// renames it over the original. Edited pages come from journal and are
// encoded with the target's charset; the rest are copied byte for byte.
// If ctx is cancelled the temporary file is removed and ErrSaveCancelled
// is returned.
func writeDocument(ctx context.Context, target SaveTarget, journal Journal) (err error) {
	path := target.Path()
	if path == "" {
		return ErrNoSavePath
	}
	fs := target.FileSystem()
	charset := target.Charset()

	count, err := target.PageCount()
	if err != nil {
		return err
	}

	tmp := path + saveSuffix
	h, err := fs.Open(tmp, OpenModeWrite)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	closed := false
	defer func() {
		if !closed {
			fs.Close(h)
		}
		if err != nil {
			fs.Remove(tmp)
		}
	}()

	out := handleWriter{fs: fs, handle: h}
	for n := int64(0); n < count; n++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w at page %d of %d", ErrSaveCancelled, n, count)
		}
		if err := writePage(out, target, charset, journal, n); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ErrSaveCancelled
	}

	closed = true
	if err := fs.Close(h); err != nil {
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func writePage(out io.Writer, target SaveTarget, charset *Charset, journal Journal, n int64) error {
	text, ok, err := journal.Get(n)
	if err != nil {
		return err
	}
	if !ok {
		data, err := target.RawPage(n)
		if err != nil {
			return fmt.Errorf("%w: page %d: %v", ErrReadFailed, n, err)
		}
		_, err = out.Write(data)
		return err
	}

	w := charset.NewWriter(out)
	if _, err := io.WriteString(w, text); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
