// Package lock provides a process-local lock table guarding against
// concurrent duplicate work. It protects only in-flight operations: state is
// never persisted, so a process restart clears it safely.
package lock

import "sync"

// Key identifies one guarded operation. Scope is "recurring" for a
// materialization pass or a transaction id for an update; Period is the
// encoded month for materialization and zero for updates.
type Key struct {
	UserID string
	Scope  string
	Period int
}

// MaterializationKey builds the key guarding generation for one user and
// period, encoded as month*100+year.
func MaterializationKey(userID string, month, year int) Key {
	return Key{UserID: userID, Scope: "recurring", Period: month*100 + year}
}

// UpdateKey builds the key serializing edits to a single transaction.
func UpdateKey(userID, transactionID string) Key {
	return Key{UserID: userID, Scope: transactionID}
}

// Table is an in-memory registry of in-flight operations. Acquisition is
// non-blocking: a caller that fails to acquire must not wait.
type Table struct {
	inFlight map[Key]struct{}
	mu       sync.Mutex
}

// NewTable creates an empty lock table.
func NewTable() *Table {
	return &Table{inFlight: make(map[Key]struct{})}
}

// TryAcquire atomically inserts the key if absent. It returns false when the
// key is already held; the caller treats that as "someone else is handling
// it", not as an error.
func (t *Table) TryAcquire(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, held := t.inFlight[key]; held {
		return false
	}
	t.inFlight[key] = struct{}{}
	return true
}

// Release removes the key. Releasing a key that is not held is a no-op, so
// deferred releases on error paths are always safe.
func (t *Table) Release(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, key)
}
