package sqlitejournal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phroun/folio/sqlitejournal"
)

func openTemp(t *testing.T, document string) (*sqlitejournal.Journal, string) {
	t.Helper()

	dir, err := os.MkdirTemp("", "sqlitejournal_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "journal.db")
	j, err := sqlitejournal.Open(path, document)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return j, path
}

func TestPutGet(t *testing.T) {
	j, _ := openTemp(t, "doc")
	defer j.Close()

	if _, ok, err := j.Get(3); err != nil || ok {
		t.Fatalf("Get on empty journal = ok %v, err %v", ok, err)
	}

	if err := j.Put(3, "first"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := j.Put(3, "second"); err != nil {
		t.Fatalf("Put (overwrite) failed: %v", err)
	}

	text, ok, err := j.Get(3)
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if text != "second" {
		t.Errorf("Get = %q, want %q", text, "second")
	}
}

func TestPagesDeleteClear(t *testing.T) {
	j, _ := openTemp(t, "doc")
	defer j.Close()

	for _, p := range []int64{7, 1, 4} {
		if err := j.Put(p, "x"); err != nil {
			t.Fatalf("Put(%d) failed: %v", p, err)
		}
	}

	pages, err := j.Pages()
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	want := []int64{1, 4, 7}
	if len(pages) != len(want) {
		t.Fatalf("Pages = %v, want %v", pages, want)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("Pages[%d] = %d, want %d", i, pages[i], want[i])
		}
	}

	if err := j.Delete(4); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := j.Get(4); ok {
		t.Error("page 4 still present after Delete")
	}

	if err := j.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	pages, _ = j.Pages()
	if len(pages) != 0 {
		t.Errorf("Pages after Clear = %v, want none", pages)
	}
}

func TestDocumentsAreIsolated(t *testing.T) {
	a, path := openTemp(t, "a")
	defer a.Close()

	b, err := sqlitejournal.Open(path, "b")
	if err != nil {
		t.Fatalf("Open b failed: %v", err)
	}
	defer b.Close()

	a.Put(0, "from a")
	if _, ok, _ := b.Get(0); ok {
		t.Error("document b sees document a's edit")
	}

	b.Clear()
	if _, ok, _ := a.Get(0); !ok {
		t.Error("clearing b removed a's edit")
	}
}

func TestEditsSurviveReopen(t *testing.T) {
	j, path := openTemp(t, "doc")
	j.Put(2, "kept")
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	j, err := sqlitejournal.Open(path, "doc")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	text, ok, err := j.Get(2)
	if err != nil || !ok || text != "kept" {
		t.Errorf("Get after reopen = %q, %v, %v; want %q", text, ok, err, "kept")
	}
}
