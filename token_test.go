package folio

import "testing"

func TestTokenLockIdle(t *testing.T) {
	var l TokenLock

	if l.Active() != nil {
		t.Fatal("new lock should be idle")
	}
	tok := NewToken(NavigateByUser, 3)
	if !l.TryAcquire(tok) {
		t.Fatal("TryAcquire on idle lock failed")
	}
	if !l.IsActive(tok) {
		t.Error("IsActive = false after acquire")
	}
	if l.TryAcquire(nil) {
		t.Error("TryAcquire(nil) should fail")
	}
}

func TestTokenLockSaveBlocksNavigation(t *testing.T) {
	var l TokenLock

	save := NewToken(Save, -1)
	if !l.TryAcquire(save) {
		t.Fatal("TryAcquire(Save) on idle lock failed")
	}
	if l.TryAcquire(NewToken(NavigateByUser, 0)) {
		t.Error("NavigateByUser acquired while Save is active")
	}
	if l.TryAcquire(NewToken(Save, -1)) {
		t.Error("a second Save acquired while Save is active")
	}
	if !l.TryAcquire(save) {
		t.Error("re-acquiring the held Save token failed")
	}
	if l.Active() != save {
		t.Error("held token changed")
	}
}

func TestTokenLockCompatibility(t *testing.T) {
	tests := []struct {
		held, next Reason
		want       bool
	}{
		{NavigateByUser, NavigateByUser, true},
		{NavigateByUser, ShowSearchResult, true},
		{ShowSearchResult, ShowSearchResult, true},
		{Undo, Undo, true},
		{Redo, Redo, true},
		{ChangeEncoding, ChangeEncoding, true},
		{ShowSearchResult, NavigateByUser, false},
		{NavigateByUser, Undo, false},
		{Undo, Redo, false},
		{NavigateByUser, Save, false},
		{Save, Undo, false},
		{ChangeEncoding, NavigateByUser, false},
	}

	for _, tt := range tests {
		var l TokenLock
		l.TryAcquire(NewToken(tt.held, 0))
		next := NewToken(tt.next, 1)
		if got := l.TryAcquire(next); got != tt.want {
			t.Errorf("held %s, acquire %s = %v, want %v", tt.held, tt.next, got, tt.want)
		}
		if tt.want && l.Active() != next {
			t.Errorf("held %s, acquire %s: new token not active", tt.held, tt.next)
		}
	}
}

func TestTokenLockRelease(t *testing.T) {
	var l TokenLock

	first := NewToken(NavigateByUser, 0)
	second := NewToken(ShowSearchResult, 1)
	l.TryAcquire(first)
	l.TryAcquire(second)

	if l.ReleaseIf(first) {
		t.Error("ReleaseIf released a token that was already replaced")
	}
	if l.Active() != second {
		t.Error("ReleaseIf of a stale token changed the active token")
	}
	if !l.ReleaseIf(second) {
		t.Error("ReleaseIf of the active token failed")
	}
	if l.Active() != nil {
		t.Error("lock not idle after ReleaseIf")
	}

	l.TryAcquire(NewToken(Save, -1))
	l.Release()
	if l.Active() != nil {
		t.Error("lock not idle after Release")
	}
}

func TestTokenAttachments(t *testing.T) {
	tok := NewToken(ShowSearchResult, 2).
		Attach(AttachResultStart, Symbol(2, 1)).
		Attach(AttachResultEnd, Symbol(2, 4))

	v, ok := tok.Attachment(AttachResultEnd)
	if !ok || v.(SymbolPosition) != Symbol(2, 4) {
		t.Errorf("Attachment(AttachResultEnd) = %v, %v", v, ok)
	}
	if _, ok := tok.Attachment(AttachEdit); ok {
		t.Error("Attachment(AttachEdit) present but never attached")
	}
}

func TestReasonString(t *testing.T) {
	if Save.String() != "save" || ShowSearchResult.String() != "show search result" || Reason(42).String() != "unknown" {
		t.Error("unexpected Reason names")
	}
}
