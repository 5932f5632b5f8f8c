package folio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return path
}

func openTestSource(t *testing.T, content []byte, opts Options) *FileSource {
	t.Helper()
	s, err := OpenFileSource(writeTemp(t, content), opts)
	if err != nil {
		t.Fatalf("OpenFileSource failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func readAllPages(t *testing.T, s *FileSource) []Page {
	t.Helper()
	count, err := s.PageCount()
	if err != nil {
		t.Fatalf("PageCount failed: %v", err)
	}
	pages := make([]Page, count)
	for n := int64(0); n < count; n++ {
		p, err := s.ReadPage(n)
		if err != nil {
			t.Fatalf("ReadPage(%d) failed: %v", n, err)
		}
		pages[n] = p
	}
	return pages
}

func joinPages(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
	}
	return b.String()
}

func TestFileSourceLineBoundaries(t *testing.T) {
	content := "0123456\n89abcdef\nghij\n"
	s := openTestSource(t, []byte(content), Options{PageSize: 10, MaxPageBoundaryShift: 8})

	pages := readAllPages(t, s)
	if len(pages) != 3 {
		t.Fatalf("page count = %d, want 3", len(pages))
	}
	if pages[0].Text != "0123456\n89abcdef\n" {
		t.Errorf("page 0 = %q, want it to end at the line break", pages[0].Text)
	}
	if got := joinPages(pages); got != content {
		t.Errorf("pages joined = %q, want %q", got, content)
	}

	for i, p := range pages {
		if p.Number != int64(i) {
			t.Errorf("page %d has Number %d", i, p.Number)
		}
		if p.IsLast != (i == len(pages)-1) {
			t.Errorf("page %d IsLast = %v", i, p.IsLast)
		}
	}
}

func TestFileSourceNoSplitRune(t *testing.T) {
	content := "aaaaaaaaéééé"
	s := openTestSource(t, []byte(content), Options{PageSize: 9, MaxPageBoundaryShift: 4})

	pages := readAllPages(t, s)
	if len(pages) != 2 {
		t.Fatalf("page count = %d, want 2", len(pages))
	}
	if pages[0].Text != "aaaaaaaaé" || pages[1].Text != "ééé" {
		t.Errorf("pages = %q, %q", pages[0].Text, pages[1].Text)
	}
	for _, p := range pages {
		if !utf8.ValidString(p.Text) || strings.ContainsRune(p.Text, utf8.RuneError) {
			t.Errorf("page %d split a character: %q", p.Number, p.Text)
		}
	}
}

func TestFileSourceNoSplitSurrogate(t *testing.T) {
	// "a😀b" in UTF-16LE: the nominal boundary at byte 4 falls between the
	// surrogate halves.
	content := []byte{'a', 0, 0x3D, 0xD8, 0x00, 0xDE, 'b', 0}
	s := openTestSource(t, content, Options{PageSize: 4, MaxPageBoundaryShift: 2, Encoding: "utf-16le"})

	pages := readAllPages(t, s)
	if len(pages) != 2 {
		t.Fatalf("page count = %d, want 2", len(pages))
	}
	if pages[0].Text != "a😀" || pages[1].Text != "b" {
		t.Errorf("pages = %q, %q; want %q, %q", pages[0].Text, pages[1].Text, "a😀", "b")
	}
}

func TestFileSourceCharset(t *testing.T) {
	s := openTestSource(t, []byte("caf\xe9\n"), Options{Encoding: "windows-1252"})

	p, err := s.ReadPage(0)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if p.Text != "café\n" {
		t.Errorf("page text = %q, want %q", p.Text, "café\n")
	}

	if err := s.SetEncoding("utf-8"); err != nil {
		t.Fatalf("SetEncoding failed: %v", err)
	}
	p, _ = s.ReadPage(0)
	if !strings.ContainsRune(p.Text, utf8.RuneError) {
		t.Errorf("page decoded as UTF-8 = %q, want a replacement character", p.Text)
	}
	if err := s.SetEncoding("nope"); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("SetEncoding(nope) = %v, want ErrUnknownEncoding", err)
	}
}

func TestFileSourceRawPages(t *testing.T) {
	content := []byte("line one\nline two\nline three\nline four\n")
	s := openTestSource(t, content, Options{PageSize: 12, MaxPageBoundaryShift: 6})

	count, _ := s.PageCount()
	var joined []byte
	for n := int64(0); n < count; n++ {
		raw, err := s.RawPage(n)
		if err != nil {
			t.Fatalf("RawPage(%d) failed: %v", n, err)
		}
		joined = append(joined, raw...)
	}
	if !bytes.Equal(joined, content) {
		t.Errorf("raw pages joined = %q, want %q", joined, content)
	}
}

func TestFileSourceOutOfRange(t *testing.T) {
	s := openTestSource(t, []byte("short"), Options{PageSize: 16})

	if _, err := s.ReadPage(1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("ReadPage(1) err = %v, want ErrPageOutOfRange", err)
	}
	if _, err := s.ReadPage(-1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("ReadPage(-1) err = %v, want ErrPageOutOfRange", err)
	}
}

func TestFileSourceEmpty(t *testing.T) {
	s := openTestSource(t, nil, Options{PageSize: 16})

	count, err := s.PageCount()
	if err != nil || count != 0 {
		t.Errorf("PageCount = %d, %v; want 0", count, err)
	}
}

func TestFileSourceRequestRead(t *testing.T) {
	s := openTestSource(t, []byte("abcdefghijklmnopqrstuvwxyz"), Options{PageSize: 10})

	type result struct {
		p   Page
		err error
	}
	results := make(chan result, 3)
	for n := int64(0); n < 3; n++ {
		s.RequestRead(n, func(p Page, err error) { results <- result{p, err} })
	}

	seen := make(map[int64]string)
	for i := 0; i < 3; i++ {
		select {
		case r := <-results:
			if r.err != nil {
				t.Fatalf("RequestRead failed: %v", r.err)
			}
			seen[r.p.Number] = r.p.Text
		case <-time.After(5 * time.Second):
			t.Fatal("RequestRead did not complete")
		}
	}
	if seen[0] != "abcdefghij" || seen[2] != "uvwxyz" {
		t.Errorf("pages read = %v", seen)
	}
}

func TestFileSourceClosed(t *testing.T) {
	s := openTestSource(t, []byte("abc"), Options{PageSize: 16})
	s.Close()

	if _, err := s.ReadPage(0); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("ReadPage after Close = %v, want ErrSourceClosed", err)
	}
	if _, err := s.PageCount(); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("PageCount after Close = %v, want ErrSourceClosed", err)
	}

	done := make(chan error, 1)
	s.RequestRead(0, func(_ Page, err error) { done <- err })
	select {
	case err := <-done:
		if !errors.Is(err, ErrSourceClosed) {
			t.Errorf("RequestRead after Close = %v, want ErrSourceClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RequestRead after Close never called back")
	}
}
