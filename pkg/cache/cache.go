package cache

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrKeyExists = errors.New("key already exists in cache")

// Cache is a weighted LRU cache. Inserting past the weight budget evicts the
// least recently used entries.
type Cache[V any] interface {
	GetWeight() int
	GetBudget() int
	Len() int
	Insert(key string, value V, weight int) error
	Retrieve(key string) (V, bool)
	Delete(key string) (V, bool)
	Clear()
}

// EvictFunc is called, outside of the cache lock, for every entry removed by
// budget eviction, Delete or Clear.
type EvictFunc[V any] func(key string, value V)

type cacheNode[V any] struct {
	next   *cacheNode[V]
	prev   *cacheNode[V]
	key    string
	value  V
	weight int
}

type cache[V any] struct {
	log     *logrus.Entry
	onEvict EvictFunc[V]

	mu     sync.Mutex
	head   *cacheNode[V]
	tail   *cacheNode[V]
	lookup map[string]*cacheNode[V]
	weight int
	budget int
}

// NewCache returns a cache with the given weight budget. onEvict may be nil.
func NewCache[V any](budget int, onEvict EvictFunc[V]) Cache[V] {
	return &cache[V]{
		log:     logrus.StandardLogger().WithField("type", "cache"),
		onEvict: onEvict,
		lookup:  make(map[string]*cacheNode[V]),
		budget:  budget,
	}
}

func (c *cache[V]) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *cache[V]) GetBudget() int {
	return c.budget
}

func (c *cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lookup)
}

// Insert adds a new entry at the front of the LRU list. Existing keys are
// rejected with ErrKeyExists.
func (c *cache[V]) Insert(key string, value V, weight int) error {
	c.mu.Lock()

	if _, found := c.lookup[key]; found {
		c.mu.Unlock()
		return ErrKeyExists
	}

	node := &cacheNode[V]{
		key:    key,
		value:  value,
		weight: weight,
	}
	c.pushFront(node)
	c.lookup[key] = node
	c.weight += weight

	var evicted []*cacheNode[V]
	for c.weight > c.budget && c.tail != nil {
		evictNode := c.tail
		c.unlink(evictNode)
		delete(c.lookup, evictNode.key)
		c.weight -= evictNode.weight
		evicted = append(evicted, evictNode)

		c.log.WithFields(logrus.Fields{
			"key":          evictNode.key,
			"weight":       evictNode.weight,
			"spare_weight": c.budget - c.weight,
		}).Debug("evicted cache entry")
	}

	c.mu.Unlock()

	c.notify(evicted...)
	return nil
}

// Retrieve returns the entry for key and marks it as most recently used
func (c *cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, found := c.lookup[key]
	if !found {
		var zero V
		return zero, false
	}

	if node != c.head {
		c.unlink(node)
		c.pushFront(node)
	}

	return node.value, true
}

func (c *cache[V]) Delete(key string) (V, bool) {
	c.mu.Lock()

	node, found := c.lookup[key]
	if !found {
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	c.unlink(node)
	delete(c.lookup, key)
	c.weight -= node.weight
	c.mu.Unlock()

	c.notify(node)
	return node.value, true
}

func (c *cache[V]) Clear() {
	c.mu.Lock()

	var removed []*cacheNode[V]
	for node := c.head; node != nil; node = node.next {
		removed = append(removed, node)
	}

	c.head = nil
	c.tail = nil
	c.lookup = make(map[string]*cacheNode[V])
	c.weight = 0
	c.mu.Unlock()

	c.notify(removed...)
}

func (c *cache[V]) pushFront(node *cacheNode[V]) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *cache[V]) unlink(node *cacheNode[V]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.next = nil
	node.prev = nil
}

func (c *cache[V]) notify(nodes ...*cacheNode[V]) {
	if c.onEvict == nil {
		return
	}
	for _, node := range nodes {
		c.onEvict(node.key, node.value)
	}
}
