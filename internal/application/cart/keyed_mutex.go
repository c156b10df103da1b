package cart

import (
	"sync"

	"github.com/storefront/cartsync/internal/domain/cart"
)

// keyedMutex serializes cart mutations per line key so that two rapid
// mutations of the same (product, size, variant) line are ordered, while
// mutations of different lines still interleave freely. Entries are kept
// for the life of the store; the key space is bounded by the distinct lines
// a session touches.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[cart.LineKey]*sync.Mutex
}

// newKeyedMutex creates an empty keyed mutex
func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[cart.LineKey]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function
func (k *keyedMutex) Lock(key cart.LineKey) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
