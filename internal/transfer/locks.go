package transfer

import "sync"

// accountLocks serializes executions per account. The window between
// the balance check and the broadcast is a check-then-act race without
// this; holding the sender's lock across it prevents two concurrent
// executions from double-spending the same balance.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int64]*sync.Mutex)}
}

// forAccount returns the mutex owned by the account, creating it on
// first use. Locks are never removed; the map grows with the user base,
// which is bounded and small.
func (l *accountLocks) forAccount(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}
