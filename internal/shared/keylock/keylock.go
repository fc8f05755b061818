// Package keylock provides per-key mutual exclusion for serializing
// read-then-write sequences that must be atomic per logical key.
package keylock

import "sync"

// KeyLock hands out one mutex per string key. Locks are created on first use
// and kept for the life of the process; the key space here (contact+account
// pairs with live traffic) is small enough that eviction is not worth the
// complexity.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed.
func (k *KeyLock) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key. Unlocking a never-locked key panics,
// same as sync.Mutex.
func (k *KeyLock) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if l, ok := k.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.locks[key] = l
	return l
}
