package service

import "sync"

// keyedMutex serializes reconciliation per borrower phone. The scheduler's
// sweep uses TryLock so it skips a borrower currently being reconciled
// on demand instead of queueing behind it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

func (k *keyedMutex) Lock(key string) {
	k.get(key).Lock()
}

func (k *keyedMutex) TryLock(key string) bool {
	return k.get(key).TryLock()
}

func (k *keyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}
