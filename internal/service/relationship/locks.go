package relationship

import "sync"

// keyedLocks serializes mutation per username. The read-modify-write cycle
// over the user store is the most race-prone sequence in the system; a pair
// of usernames is always locked in lexicographic order so two overlapping
// accepts cannot deadlock.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(username string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[username]
	if !ok {
		m = &sync.Mutex{}
		k.locks[username] = m
	}
	return m
}

// lockPair acquires both usernames' mutexes in canonical order and returns
// the release function.
func (k *keyedLocks) lockPair(a, b string) func() {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	m1 := k.lock(first)
	m1.Lock()
	if first == second {
		return m1.Unlock
	}

	m2 := k.lock(second)
	m2.Lock()
	return func() {
		m2.Unlock()
		m1.Unlock()
	}
}
