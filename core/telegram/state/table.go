// Package state keeps per-user conversation state for Telegram bots.
// A Table is owned by whoever builds the bot; there is no package-level registry.
package state

import "sync"

// Table maps Telegram user ids to their current conversation step.
// Users without an entry are in the idle state supplied to NewTable.
type Table[S comparable] struct {
	idle S

	mu     sync.Mutex
	states map[int64]S
	locks  map[int64]*sync.Mutex
}

// NewTable returns an empty table whose default step is idle.
func NewTable[S comparable](idle S) *Table[S] {
	return &Table[S]{
		idle:   idle,
		states: make(map[int64]S),
		locks:  make(map[int64]*sync.Mutex),
	}
}

// Get returns the user's step, or the idle step when none is stored.
func (t *Table[S]) Get(userID int64) S {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[userID]; ok {
		return st
	}
	return t.idle
}

// Set stores the user's step. Setting the idle step removes the entry.
func (t *Table[S]) Set(userID int64, st S) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st == t.idle {
		delete(t.states, userID)
		return
	}
	t.states[userID] = st
}

// Active returns the number of users outside the idle step.
func (t *Table[S]) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

// Lock serializes work for one user and returns the matching unlock func.
// Lock entries are kept for the table's lifetime so two callers never hold different mutexes for one user.
func (t *Table[S]) Lock(userID int64) func() {
	t.mu.Lock()
	l, ok := t.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[userID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
