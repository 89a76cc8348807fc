// Package staging implements the deletion-staging table shared by the
// mailbox and share subsystems: a mapping from a byte-string key to an
// OutstandingDeletion, expired by a timed sweep.
package staging

import (
	"bytes"
	"sync"
	"time"
)

// Entry records that a key was staged for deletion at Timestamp, carrying
// an arbitrary caller-defined Identifier. Both tables already key entries
// by the identifying bytes (public key or slug), and mde/httpapi leaves
// Identifier empty for both.
type Entry struct {
	Timestamp  int64
	Identifier []byte
}

// keyString turns a byte-slice key into a comparable map key without
// risking aliasing the caller's backing array.
func keyString(key []byte) string { return string(key) }

// Table is a mutex-guarded map of key -> Entry, instantiated once for
// mailbox-deletion gating and once for share-GC (spec.md §3/§4.3).
type Table struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// New creates an empty staging table.
func New() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Insert records that key was staged for deletion, replacing any prior
// entry for the same key.
func (t *Table) Insert(key []byte, entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[keyString(key)] = entry
}

// Get returns the staged entry for key, if any.
func (t *Table) Get(key []byte) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[keyString(key)]
	return e, ok
}

// Remove deletes the staged entry for key, if any.
func (t *Table) Remove(key []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, keyString(key))
}

// Sweep removes every entry whose age has reached or exceeded timeout as of
// now (entry.Timestamp + timeout <= now — the corrected comparison
// direction; an earlier revision of jaem-server used ">=" and leaked
// entries forever). onRemove, if non-nil, is invoked for every expired
// entry with its raw key bytes, and the staging entry is only dropped once
// onRemove succeeds; the first failing onRemove call is logged by the
// caller and aborts the rest of this tick's pass, leaving the remaining
// expired entries staged for a retry on the next tick (spec.md §4.3's
// best-effort share GC). Sweep does not hold its mutex during onRemove, so
// file I/O never happens under the staging-table lock.
func (t *Table) Sweep(now time.Time, timeout time.Duration, onRemove func(key []byte) error) {
	nowUnix := now.Unix()
	timeoutSecs := int64(timeout / time.Second)

	t.mu.Lock()
	expired := make([][]byte, 0)
	for k, e := range t.entries {
		if e.Timestamp+timeoutSecs <= nowUnix {
			expired = append(expired, []byte(k))
		}
	}
	t.mu.Unlock()

	for _, k := range expired {
		if onRemove != nil {
			if err := onRemove(k); err != nil {
				return
			}
		}
		t.mu.Lock()
		delete(t.entries, keyString(k))
		t.mu.Unlock()
	}
}

// Len reports the number of currently staged entries (test/metrics use).
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Equal reports whether two keys are byte-identical; exported as a small
// helper for callers comparing staged identifiers.
func Equal(a, b []byte) bool { return bytes.Equal(a, b) }
