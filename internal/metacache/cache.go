package metacache

import (
	"sync"

	"chatlist-service/internal/models"
	"chatlist-service/internal/observability"
)

// Meta is the per-chat derived metadata kept between refreshes.
type Meta struct {
	LastMessagePreview string
	MessageCount       int
	TitleVersion       int
	DraftVersion       int
}

// Cache is an in-memory per-chat metadata cache. Sync events that touch a
// chat must invalidate its entry before the next refresh reads it.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Meta
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Meta)}
}

// Get returns the cached metadata for a chat.
func (c *Cache) Get(chatID string) (Meta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.entries[chatID]
	if ok {
		observability.IncMetaCache("hit")
	} else {
		observability.IncMetaCache("miss")
	}
	return meta, ok
}

// Put stores metadata for a chat.
func (c *Cache) Put(chatID string, meta Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[chatID] = meta
}

// Invalidate drops the entry for a chat.
func (c *Cache) Invalidate(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, chatID)
	observability.IncMetaCache("invalidate")
}

// Stale reports whether the cached entry no longer matches the chat's
// version counters.
func (c *Cache) Stale(chat models.Chat) bool {
	meta, ok := c.Get(chat.ID)
	if !ok {
		return true
	}
	return meta.TitleVersion != chat.TitleVersion || meta.DraftVersion != chat.DraftVersion
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
