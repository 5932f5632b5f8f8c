package folio

import "sync"

// Reason names the high-level intent an AccessToken represents.
type Reason int

const (
	// NavigateByUser is a scroll or page switch requested by the user.
	NavigateByUser Reason = iota

	// Save writes the document back to its file.
	Save

	// Undo reverts the most recent edit.
	Undo

	// Redo reapplies the most recently undone edit.
	Redo

	// ShowSearchResult brings a search match into view and selects it.
	ShowSearchResult

	// ChangeEncoding re-decodes the document with another charset.
	ChangeEncoding
)

// String returns a human-readable name for the reason.
func (r Reason) String() string {
	switch r {
	case NavigateByUser:
		return "navigate"
	case Save:
		return "save"
	case Undo:
		return "undo"
	case Redo:
		return "redo"
	case ShowSearchResult:
		return "show search result"
	case ChangeEncoding:
		return "change encoding"
	default:
		return "unknown"
	}
}

// AttachmentKey identifies intent-specific data carried by a token.
type AttachmentKey int

const (
	// AttachResultStart holds the SymbolPosition where a search match begins.
	AttachResultStart AttachmentKey = iota

	// AttachResultEnd holds the SymbolPosition where a search match ends.
	AttachResultEnd

	// AttachEdit holds the Edit an undo or redo will apply.
	AttachEdit

	// AttachEncoding holds the encoding name being switched to.
	AttachEncoding
)

// AccessToken is a claim for one coordinated intent. Tokens are compared by
// identity: two tokens with equal fields are still different claims.
type AccessToken struct {
	Reason      Reason
	Page        int64 // page the intent waits for, or -1 when none
	Attachments map[AttachmentKey]any
}

// NewToken creates a token for reason that targets page.
func NewToken(reason Reason, page int64) *AccessToken {
	return &AccessToken{
		Reason:      reason,
		Page:        page,
		Attachments: make(map[AttachmentKey]any),
	}
}

// Attach stores side data on the token and returns it for chaining.
func (t *AccessToken) Attach(key AttachmentKey, value any) *AccessToken {
	t.Attachments[key] = value
	return t
}

// Attachment returns side data stored under key.
func (t *AccessToken) Attachment(key AttachmentKey) (any, bool) {
	v, ok := t.Attachments[key]
	return v, ok
}

// TokenLock is a single-slot cooperative gate over access tokens.
// It never blocks and never queues: a denied acquire simply returns false.
type TokenLock struct {
	mu     sync.Mutex
	active *AccessToken
}

// TryAcquire makes tok the active token if it is compatible with the one
// currently held. It has no side effect when it fails.
func (l *TokenLock) TryAcquire(tok *AccessToken) bool {
	if tok == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !compatible(l.active, tok) {
		return false
	}
	l.active = tok
	return true
}

// compatible reports whether next may replace held.
func compatible(held, next *AccessToken) bool {
	switch {
	case held == nil:
		return true
	case held == next:
		return true
	case held.Reason == NavigateByUser && next.Reason == ShowSearchResult:
		return true
	case held.Reason == next.Reason && next.Reason != Save:
		return true
	}
	return false
}

// Release returns the lock to the idle state.
func (l *TokenLock) Release() {
	l.mu.Lock()
	l.active = nil
	l.mu.Unlock()
}

// ReleaseIf releases the lock only when tok is still the active token.
// Completion paths of operations that may have been superseded use this.
func (l *TokenLock) ReleaseIf(tok *AccessToken) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == nil || l.active != tok {
		return false
	}
	l.active = nil
	return true
}

// Active returns the held token, or nil when idle.
func (l *TokenLock) Active() *AccessToken {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// IsActive reports whether tok is the held token.
func (l *TokenLock) IsActive(tok *AccessToken) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tok != nil && l.active == tok
}
