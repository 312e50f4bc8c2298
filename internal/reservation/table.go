package reservation

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownClaim is returned when committing or releasing a claim that no
// longer owns its key (already resolved, or expired and re-reserved).
var ErrUnknownClaim = errors.New("claim does not own its key")

// ConflictError reports that a key is already reserved or committed.
type ConflictError struct {
	Key string
	// Identity is the committed holder's identity; empty while the
	// conflicting claim is still in flight.
	Identity string
}

func (e *ConflictError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("key %q is reserved by an in-flight claim", e.Key)
	}
	return fmt.Sprintf("key %q is committed to %s", e.Key, e.Identity)
}

type entryState int

const (
	stateReserved entryState = iota
	stateCommitted
)

type entry struct {
	state     entryState
	token     uint64
	identity  string
	expiresAt time.Time
}

// Table tracks claims for one uniqueness domain.
type Table struct {
	mu        sync.Mutex
	ttl       time.Duration
	nextToken uint64
	entries   map[string]*entry
	now       func() time.Time
}

// NewTable creates a table whose reservations expire after ttl. A zero or
// negative ttl disables expiry.
func NewTable(ttl time.Duration) *Table {
	return &Table{
		ttl:     ttl,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Claim is an exclusive in-flight hold on one key. Exactly one of Commit
// or Release must be called; both are idempotent after the claim resolves.
type Claim struct {
	table    *Table
	key      string
	token    uint64
	resolved bool
}

// Key returns the reserved key.
func (c *Claim) Key() string { return c.key }

// Reserve claims key exclusively. It fails with *ConflictError when the
// key has a live reservation or a committed entry. Expired reservations
// are reaped lazily here and eagerly by Sweep.
func (t *Table) Reserve(key string) (*Claim, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[key]; ok {
		if existing.state == stateCommitted {
			return nil, &ConflictError{Key: key, Identity: existing.identity}
		}
		if !t.expired(existing) {
			return nil, &ConflictError{Key: key}
		}
		delete(t.entries, key)
	}

	t.nextToken++
	e := &entry{state: stateReserved, token: t.nextToken}
	if t.ttl > 0 {
		e.expiresAt = t.now().Add(t.ttl)
	}
	t.entries[key] = e
	return &Claim{table: t, key: key, token: e.token}, nil
}

// Commit converts the claim into a committed entry owned by identity.
func (c *Claim) Commit(identity string) error {
	if c == nil || c.resolved {
		return nil
	}
	t := c.table
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[c.key]
	if !ok || e.state != stateReserved || e.token != c.token {
		return fmt.Errorf("%w: %q", ErrUnknownClaim, c.key)
	}
	e.state = stateCommitted
	e.identity = identity
	e.expiresAt = time.Time{}
	c.resolved = true
	return nil
}

// Release frees the key for other claimants. No-op once resolved or after
// the claim expired and was re-reserved.
func (c *Claim) Release() {
	if c == nil || c.resolved {
		return
	}
	t := c.table
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[c.key]; ok && e.state == stateReserved && e.token == c.token {
		delete(t.entries, c.key)
	}
	c.resolved = true
}

// Restore records a committed entry without going through Reserve. Used to
// preload catalog state at startup.
func (t *Table) Restore(key, identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = &entry{state: stateCommitted, identity: identity}
}

// Forget removes a committed entry so the key becomes reusable. Called
// when the owning asset is soft-deleted.
func (t *Table) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok && e.state == stateCommitted {
		delete(t.entries, key)
	}
}

// Lookup returns the identity committed to key, if any.
func (t *Table) Lookup(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok && e.state == stateCommitted {
		return e.identity, true
	}
	return "", false
}

// Sweep reaps expired reservations and returns how many were removed.
func (t *Table) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, e := range t.entries {
		if e.state == stateReserved && t.expired(e) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

func (t *Table) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && t.now().After(e.expiresAt)
}
