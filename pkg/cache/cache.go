// Package cache holds the ephemeral per-thread message lists the delivery
// pipeline mutates. It is the only mutable shared state in this layer; all
// writes happen through the pipeline transitions (optimistic append,
// in-place reconcile, snapshot restore) plus the settle-time refresh.
package cache

import (
	"sync"

	"arenachat/pkg/models"
)

// Messages is a concurrency-safe map of thread id to its cached, ordered
// message list. Lists are copied on the way in and out so callers can never
// alias the cache's backing arrays.
type Messages struct {
	mu    sync.RWMutex
	lists map[string][]models.Message
}

// NewMessages returns an empty cache.
func NewMessages() *Messages {
	return &Messages{lists: make(map[string][]models.Message)}
}

// Get returns a copy of the cached list for a thread. A thread that was
// never cached yields an empty list.
func (c *Messages) Get(threadID string) []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.lists[threadID])
}

// Set replaces the cached list for a thread.
func (c *Messages) Set(threadID string, msgs []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[threadID] = clone(msgs)
}

// Snapshot returns the current list for rollback. Identical to Get; the
// separate name keeps pipeline call sites readable.
func (c *Messages) Snapshot(threadID string) []models.Message {
	return c.Get(threadID)
}

// Restore puts a previously taken snapshot back verbatim.
func (c *Messages) Restore(threadID string, snapshot []models.Message) {
	c.Set(threadID, snapshot)
}

// Append adds a message to the end of a thread's list.
func (c *Messages) Append(threadID string, m models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[threadID] = append(clone(c.lists[threadID]), m)
}

// ReplaceByID swaps the entry whose ID matches id for the given message,
// preserving list order. Returns false when no entry matched.
func (c *Messages) ReplaceByID(threadID, id string, m models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.lists[threadID]
	for i := range list {
		if list[i].ID == id {
			next := clone(list)
			next[i] = m
			c.lists[threadID] = next
			return true
		}
	}
	return false
}

// Len returns the cached list length for a thread.
func (c *Messages) Len(threadID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lists[threadID])
}

func clone(in []models.Message) []models.Message {
	out := make([]models.Message, len(in))
	copy(out, in)
	return out
}
