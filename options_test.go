package folio

import (
	"errors"
	"testing"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()

	if o.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", o.PageSize, DefaultPageSize)
	}
	if o.MaxPageBoundaryShift != DefaultMaxPageBoundaryShift {
		t.Errorf("MaxPageBoundaryShift = %d, want %d", o.MaxPageBoundaryShift, DefaultMaxPageBoundaryShift)
	}
	if o.PrefetchLookaheadPages != 1 || o.LeadingPages != 1 {
		t.Errorf("lookahead/leading = %d/%d, want 1/1", o.PrefetchLookaheadPages, o.LeadingPages)
	}
	if o.Encoding != "utf-8" || o.FileSystem == nil {
		t.Errorf("Encoding = %q, FileSystem = %v", o.Encoding, o.FileSystem)
	}

	// Small pages get no boundary shift unless asked for.
	if o := (Options{PageSize: 100}).withDefaults(); o.MaxPageBoundaryShift != 0 {
		t.Errorf("MaxPageBoundaryShift for small pages = %d, want 0", o.MaxPageBoundaryShift)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		ok   bool
	}{
		{"zero value", Options{}, true},
		{"small pages", Options{PageSize: 16, MaxPageBoundaryShift: 4}, true},
		{"negative page size", Options{PageSize: -1}, false},
		{"shift not below page size", Options{PageSize: 16, MaxPageBoundaryShift: 16}, false},
		{"negative lookahead", Options{PrefetchLookaheadPages: -1}, false},
		{"negative leading", Options{LeadingPages: -2}, false},
		{"negative history", Options{HistoryLimit: -1}, false},
		{"odd utf-16 pages", Options{PageSize: 15, Encoding: "utf-16le"}, false},
		{"unknown encoding", Options{Encoding: "klingon"}, false},
	}

	for _, tt := range tests {
		err := tt.opts.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: Validate() = %v, want nil", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidOptions", tt.name, err)
		}
	}
}
