package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/prism-engine/internal/scoreerr"
)

// #region gate
// Gate is the only writer of profiles. It serializes attempts per session and
// overwrites a stored profile only when the responses hash has changed.
type Gate struct {
	store *Store
	locks *keyedLock
	now   func() time.Time
}

// NewGate creates a gate over a store.
func NewGate(store *Store) *Gate {
	return &Gate{
		store: store,
		locks: newKeyedLock(),
		now:   func() time.Time { return time.Now().UTC().Round(0) },
	}
}

// Persist applies the hash-gate rule to a fully assembled candidate. The
// candidate's SessionID and ResponsesHash must be set. When the stored hash
// and version stamps all match, the stored profile is returned untouched; a
// new results, forced-choice or catalog version rewrites it even for the same
// responses. A lost compare-and-swap surfaces as PersistenceConflict so the
// caller can retry.
func (g *Gate) Persist(ctx context.Context, candidate Profile) (Profile, Decision, error) {
	unlock, err := g.locks.lock(ctx, candidate.SessionID)
	if err != nil {
		return Profile{}, "", err
	}
	defer unlock()

	existing, err := g.store.Get(ctx, candidate.SessionID)
	found := err == nil
	if err != nil && !isNotFound(err) {
		return Profile{}, "", err
	}
	if found && existing.SameInputs(candidate) {
		return existing, DecisionUnchanged, nil
	}

	now := g.now()
	candidate.UpdatedAt = now
	if !found {
		candidate.ProfileID = uuid.New().String()
		candidate.CreatedAt = now
		ok, err := g.store.insert(ctx, candidate)
		if err != nil {
			return Profile{}, "", err
		}
		if !ok {
			return Profile{}, "", scoreerr.PersistenceConflict(candidate.SessionID, "profile created concurrently")
		}
		return candidate, DecisionCreated, nil
	}

	candidate.ProfileID = existing.ProfileID
	candidate.CreatedAt = existing.CreatedAt
	ok, err := g.store.compareAndSwap(ctx, candidate, existing.ResponsesHash)
	if err != nil {
		return Profile{}, "", err
	}
	if !ok {
		return Profile{}, "", scoreerr.PersistenceConflict(candidate.SessionID, "stored hash changed during write")
	}
	return candidate, DecisionUpdated, nil
}

// Current reads the stored profile without taking the session lock.
func (g *Gate) Current(ctx context.Context, sessionID string) (Profile, error) {
	return g.store.Get(ctx, sessionID)
}

// #endregion gate

// #region keyed-lock
// keyedLock hands out one lock per key. Entries are dropped once no caller
// holds or waits on them.
type keyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[string]*lockEntry)}
}

// lock blocks until the key is free or ctx is done.
func (k *keyedLock) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			k.release(key, e)
		}, nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}
}

func (k *keyedLock) release(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *keyedLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// #endregion keyed-lock
