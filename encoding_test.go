package folio

import (
	"bytes"
	"errors"
	"testing"
)

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		name string
		want string
		unit int64
	}{
		{"utf-8", "utf-8", 1},
		{"UTF8", "utf-8", 1},
		{"latin1", "windows-1252", 1},
		{"windows-1252", "windows-1252", 1},
		{"utf-16le", "utf-16le", 2},
		{"utf-16be", "utf-16be", 2},
	}

	for _, tt := range tests {
		cs, err := LookupEncoding(tt.name)
		if err != nil {
			t.Errorf("LookupEncoding(%q) failed: %v", tt.name, err)
			continue
		}
		if cs.Name() != tt.want {
			t.Errorf("LookupEncoding(%q).Name() = %q, want %q", tt.name, cs.Name(), tt.want)
		}
		if cs.unit != tt.unit {
			t.Errorf("LookupEncoding(%q) unit = %d, want %d", tt.name, cs.unit, tt.unit)
		}
	}

	if _, err := LookupEncoding("no-such-charset"); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("LookupEncoding(bogus) err = %v, want ErrUnknownEncoding", err)
	}
}

func TestCharsetRoundTrip(t *testing.T) {
	cs, _ := LookupEncoding("windows-1252")

	text, err := cs.Decode([]byte("caf\xe9\n"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if text != "café\n" {
		t.Errorf("Decode = %q, want %q", text, "café\n")
	}

	data, err := cs.Encode(text)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(data, []byte("caf\xe9\n")) {
		t.Errorf("Encode = %q, want %q", data, "caf\xe9\n")
	}
}

func TestCharsetEncodeUnsupported(t *testing.T) {
	cs, _ := LookupEncoding("windows-1252")

	// 日 has no windows-1252 form; it is replaced instead of failing.
	data, err := cs.Encode("a日b")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 3 || data[0] != 'a' || data[2] != 'b' {
		t.Errorf("Encode = %q, want a?b", data)
	}
}

func TestCharsetWriter(t *testing.T) {
	cs, _ := LookupEncoding("utf-16le")

	var buf bytes.Buffer
	w := cs.NewWriter(&buf)
	w.Write([]byte("hi"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{'h', 0, 'i', 0}) {
		t.Errorf("encoded = %v, want UTF-16LE \"hi\"", buf.Bytes())
	}
}

func TestCharsetDecodeInvalidUTF8(t *testing.T) {
	cs, _ := LookupEncoding("utf-8")

	text, err := cs.Decode([]byte("a\xffb"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if text != "a�b" {
		t.Errorf("Decode = %q, want replacement character", text)
	}
}
