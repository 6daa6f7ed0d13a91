// Package presence tracks which conversations are currently open in
// the foreground, so in-app notices can be suppressed for the one the
// user is already looking at.
package presence

import "sync"

// Table is a process-scoped lookup of foreground conversations.
// Views attach on open and detach on close; nothing else mutates it.
type Table struct {
	mu         sync.RWMutex
	foreground map[string]struct{}
}

func NewTable() *Table {
	return &Table{foreground: make(map[string]struct{})}
}

func (t *Table) Attach(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.foreground[conversationID] = struct{}{}
}

func (t *Table) Detach(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.foreground, conversationID)
}

func (t *Table) IsForeground(conversationID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.foreground[conversationID]
	return ok
}

// ShouldNotify decides whether an in-app notice for the conversation
// is warranted: never for the conversation already on screen.
func (t *Table) ShouldNotify(conversationID string) bool {
	return !t.IsForeground(conversationID)
}
