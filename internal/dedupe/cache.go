// ABOUTME: Thread-safe TTL cache of recently seen keys, bounded in size
// ABOUTME: The Matrix bridge uses it so a redelivered event is handled only once

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// Defaults used by the bridge when nothing is configured.
const (
	DefaultTTL     = 10 * time.Minute
	DefaultMaxSize = 10000
)

type entry[K comparable] struct {
	seenAt  time.Time
	element *list.Element
}

// Cache remembers keys for ttl. When full, the oldest key is forgotten first.
type Cache[K comparable] struct {
	mu      sync.Mutex
	seen    map[K]*entry[K]
	order   *list.List // keys, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	done   chan struct{}
	closed bool
}

// New creates a cache and starts a goroutine that drops expired keys every
// sweep interval. Non-positive arguments select the defaults.
func New[K comparable](ttl time.Duration, maxSize int) *Cache[K] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Cache[K]{
		seen:    make(map[K]*entry[K]),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval(ttl))
	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// Seen reports whether key was recorded within the TTL, recording it if not.
// The check and the mark happen under one lock, so of two concurrent calls
// with the same key exactly one returns false.
func (c *Cache[K]) Seen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.seen[key]; ok {
		if now.Sub(e.seenAt) < c.ttl {
			return true
		}
		e.seenAt = now
		c.order.MoveToBack(e.element)
		return false
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	c.seen[key] = &entry[K]{seenAt: now, element: c.order.PushBack(key)}
	return false
}

// Len reports how many keys are held, expired ones included until swept.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache[K]) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(K)
	c.order.Remove(front)
	delete(c.seen, key)
}

func (c *Cache[K]) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep drops expired keys. Keys are ordered by last mark, so it stops at
// the first live one.
func (c *Cache[K]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for el := c.order.Front(); el != nil; {
		key, _ := el.Value.(K)
		if now.Sub(c.seen[key].seenAt) < c.ttl {
			return
		}
		next := el.Next()
		c.order.Remove(el)
		delete(c.seen, key)
		el = next
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache[K]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
