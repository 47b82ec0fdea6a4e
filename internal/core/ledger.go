package core

import "sync"

// Ledger records pending friend requests: recipient username to the ordered
// requesters awaiting response. In-memory only; entries never expire, they
// are removed one at a time on acceptance.
type Ledger struct {
	mu      sync.Mutex
	pending map[string][]string
}

// NewLedger creates an empty friend-request ledger.
func NewLedger() *Ledger {
	return &Ledger{
		pending: make(map[string][]string),
	}
}

// Add records a pending request from requester to recipient. The duplicate
// check and the insert happen in one critical section, so concurrent adds
// for the same pair cannot both succeed. Returns ErrAlreadyRequested when an
// identical pair is already pending.
func (l *Ledger) Add(recipient, requester string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.pending[recipient] {
		if existing == requester {
			return ErrAlreadyRequested
		}
	}
	l.pending[recipient] = append(l.pending[recipient], requester)
	return nil
}

// Pending returns the requesters awaiting the recipient's response in
// insertion order. Read-only; used for login replay.
func (l *Ledger) Pending(recipient string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	requesters := l.pending[recipient]
	if len(requesters) == 0 {
		return nil
	}
	out := make([]string, len(requesters))
	copy(out, requesters)
	return out
}

// Remove deletes the single pending entry for (recipient, requester).
// Returns false when no such entry exists.
func (l *Ledger) Remove(recipient, requester string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	requesters := l.pending[recipient]
	for i, existing := range requesters {
		if existing == requester {
			l.pending[recipient] = append(requesters[:i], requesters[i+1:]...)
			if len(l.pending[recipient]) == 0 {
				delete(l.pending, recipient)
			}
			return true
		}
	}
	return false
}
