package service

import "sync"

// keyedMutex serializes mutations per integration id so scheduler ticks
// and caller-driven operations racing on the same record cannot lose
// counter, log, or status updates to interleaving. Entries are never
// evicted; the map is bounded by the number of live integrations.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*sync.Mutex)}
}

func (k *keyedMutex) Lock(id int64) func() {
	k.mu.Lock()
	lock, ok := k.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[id] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
