package folio

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Charset decodes page bytes into text and encodes text back for saving.
type Charset struct {
	name string
	enc  encoding.Encoding
	unit int64 // bytes per code unit; page boundaries align to it
}

// LookupEncoding resolves a charset name or alias ("utf-8", "latin1",
// "windows-1252", "utf-16le", "shift_jis", ...).
func LookupEncoding(name string) (*Charset, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = strings.ToLower(name)
	}

	cs := &Charset{name: canonical, enc: enc, unit: 1}
	if strings.HasPrefix(canonical, "utf-16") {
		cs.unit = 2
	}
	return cs, nil
}

// Name returns the canonical charset name.
func (c *Charset) Name() string {
	return c.name
}

// IsUTF8 reports whether pages are decoded as UTF-8.
func (c *Charset) IsUTF8() bool {
	return c.name == "utf-8"
}

// Decode converts raw page bytes to text. Invalid sequences become U+FFFD.
func (c *Charset) Decode(data []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Encode converts text to bytes. Characters the charset cannot represent are
// replaced rather than failing the whole page.
func (c *Charset) Encode(text string) ([]byte, error) {
	return encoding.ReplaceUnsupported(c.enc.NewEncoder()).Bytes([]byte(text))
}

// NewWriter returns a writer that encodes text written to it into w.
// The caller must Close it to flush buffered output.
func (c *Charset) NewWriter(w io.Writer) io.WriteCloser {
	return transform.NewWriter(w, encoding.ReplaceUnsupported(c.enc.NewEncoder()))
}
