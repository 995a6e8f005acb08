package sync

import (
	base "sync"
)

const (
	pointsPerStripe = 200
)

// StripedLock maps an unbounded key space, such as session ids, onto a fixed
// set of mutexes. Operations on the same key are serialized, while unrelated
// keys rarely contend.
type StripedLock struct {
	locks []base.Mutex
	ring  *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}
	return &StripedLock{
		locks: make([]base.Mutex, stripes),
		ring:  newRing(int(stripes), pointsPerStripe),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key string) *base.Mutex {
	return &l.locks[l.ring.shard([]byte(key))]
}

// Lock acquires the lock for key and returns its release func
func (l *StripedLock) Lock(key string) func() {
	mu := l.Get(key)
	mu.Lock()
	return mu.Unlock
}
