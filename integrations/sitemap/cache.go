package sitemap

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-localseo/infrastructure/valkey"
)

// Cache keeps parsed sitemaps between generations.
type Cache interface {
	Get(ctx context.Context, sitemapURL string) ([]Page, bool, error)
	Set(ctx context.Context, sitemapURL string, pages []Page) error
}

type memoryEntry struct {
	key       string
	pages     []Page
	expiresAt time.Time
}

// MemoryCache is a bounded LRU with a per-entry TTL.
type MemoryCache struct {
	mu    sync.Mutex
	size  int
	ttl   time.Duration
	order *list.List
	items map[string]*list.Element
	now   func() time.Time
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 64
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &MemoryCache{
		size:  size,
		ttl:   ttl,
		order: list.New(),
		items: make(map[string]*list.Element),
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]Page, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, false, nil
	}
	c.order.MoveToFront(el)
	return entry.pages, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, pages []Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.pages, entry.expiresAt = pages, expires
		c.order.MoveToFront(el)
		return nil
	}
	c.items[key] = c.order.PushFront(&memoryEntry{key: key, pages: pages, expiresAt: expires})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// ValkeyCache comparte los sitemaps entre procesos; el TTL lo maneja valkey
type ValkeyCache struct {
	client *valkey.Client
	ttl    time.Duration
}

func NewValkeyCache(client *valkey.Client, ttl time.Duration) *ValkeyCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &ValkeyCache{client: client, ttl: ttl}
}

func (c *ValkeyCache) key(sitemapURL string) string {
	return c.client.Key("sitemap", sitemapURL)
}

func (c *ValkeyCache) Get(ctx context.Context, sitemapURL string) ([]Page, bool, error) {
	data, found, err := c.client.Get(ctx, c.key(sitemapURL))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get sitemap cache: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	var pages []Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal sitemap cache: %w", err)
	}
	return pages, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, sitemapURL string, pages []Page) error {
	data, err := json.Marshal(pages)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(sitemapURL), data, c.ttl); err != nil {
		return fmt.Errorf("failed to save sitemap cache: %w", err)
	}
	return nil
}
