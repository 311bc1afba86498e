package graph

import "sync"

// keyedLocks serializes writes per identity key: at most one in-flight
// merge per node name and per ordered edge pair, while merges for
// disjoint keys proceed in parallel. Lock entries are retained for the
// life of the merger; the key space is bounded by the graph size.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (k *keyedLocks) lock(key string) func() {
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
