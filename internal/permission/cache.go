package permission

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/dtroode/assoc-server/internal/model"
)

// Fetcher loads the permission names mapped to a role.
type Fetcher interface {
	FetchRolePermissions(ctx context.Context, role model.Role) ([]model.Permission, error)
}

var _ Fetcher = (*Cache)(nil)

// Cache shares role mappings across clients. Entries expire after the TTL
// and are dropped by Invalidate when an administrator edits a mapping.
type Cache struct {
	fetcher Fetcher
	lru     *expirable.LRU[model.Role, []model.Permission]
	group   singleflight.Group

	mu          sync.Mutex
	generations map[model.Role]uint64
}

// NewCache wraps fetcher. A zero ttl disables caching but still coalesces
// concurrent loads of the same role.
func NewCache(fetcher Fetcher, size int, ttl time.Duration) *Cache {
	c := &Cache{
		fetcher:     fetcher,
		generations: make(map[model.Role]uint64),
	}
	if ttl > 0 {
		if size <= 0 {
			size = len(model.Roles())
		}
		c.lru = expirable.NewLRU[model.Role, []model.Permission](size, nil, ttl)
	}
	return c
}

func (c *Cache) generation(role model.Role) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[role]
}

// FetchRolePermissions returns the mapping of role, loading it on a miss.
func (c *Cache) FetchRolePermissions(ctx context.Context, role model.Role) ([]model.Permission, error) {
	if c.lru != nil {
		if perms, ok := c.lru.Get(role); ok {
			return clone(perms), nil
		}
	}

	v, err, _ := c.group.Do(string(role), func() (interface{}, error) {
		gen := c.generation(role)
		perms, err := c.fetcher.FetchRolePermissions(ctx, role)
		if err != nil {
			return nil, err
		}
		if c.lru != nil {
			c.mu.Lock()
			// A mapping edited during the load must not be cached stale.
			if c.generations[role] == gen {
				c.lru.Add(role, perms)
			}
			c.mu.Unlock()
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]model.Permission)), nil
}

// Invalidate drops the cached mapping of role.
func (c *Cache) Invalidate(role model.Role) {
	c.mu.Lock()
	c.generations[role]++
	if c.lru != nil {
		c.lru.Remove(role)
	}
	c.mu.Unlock()
	c.group.Forget(string(role))
}

// Len returns the number of cached roles.
func (c *Cache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func clone(perms []model.Permission) []model.Permission {
	out := make([]model.Permission, len(perms))
	copy(out, perms)
	return out
}
