package protocol

import "sync"

// keyedMutex provides per-key mutual exclusion. The validator uses it to
// serialize read-then-append sequences per proposal id so two concurrent
// payments cannot both decide against a stale pending state. No cross-key
// serialization happens; payments against different proposals never contend.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its release function. Lock
// entries are never evicted; the key space (proposal ids per run) is small
// and bounded by the step budget.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
