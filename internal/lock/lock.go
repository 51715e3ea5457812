// Package lock serializes work per key, such as all mutations of one owner's cart.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAcquired is returned when the key stays held for longer than the wait budget.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker grants exclusive access to a key. The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed lock. Keys that nobody holds or waits on are dropped,
// so the map only grows with concurrent owners.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

// NewLocal returns a keyed lock; wait <= 0 means wait until the context ends.
func NewLocal(wait time.Duration) *Local {
	return &Local{slots: make(map[string]*slot), wait: wait}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	case <-timeout:
		l.unref(key, s)
		return nil, ErrNotAcquired
	}
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// held reports the number of keys currently tracked.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
