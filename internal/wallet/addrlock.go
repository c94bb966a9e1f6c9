package wallet

import "sync"

// addressLocks serializes the balance-check-then-broadcast window per source
// address. Without it, two concurrent sends from the same address can both
// read a stale balance, both pass the check, and race to an over-spend at
// broadcast time.
type addressLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAddressLocks() *addressLocks {
	return &addressLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for addr and returns its release function.
func (l *addressLocks) acquire(addr string) func() {
	l.mu.Lock()
	m, ok := l.locks[addr]
	if !ok {
		m = &sync.Mutex{}
		l.locks[addr] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
