package transcript

import "sync"

// roomLocks serializes reconcile/merge operations per room name. Two
// near-simultaneous triggers for the same room (an explicit fetch and a
// client auto-save) must not both observe "no record" and race a create;
// operations on distinct rooms proceed in parallel.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{rooms: make(map[string]*roomLock)}
}

// lock acquires the mutex for key and returns its release func. Entries
// are reference-counted and removed once the last holder releases, so the
// map does not grow with every room ever seen.
func (l *roomLocks) lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.rooms[key]
	if !ok {
		entry = &roomLock{}
		l.rooms[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.rooms, key)
		}
		l.mu.Unlock()
	}
}
