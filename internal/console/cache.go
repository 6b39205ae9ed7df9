package console

import (
	"reflect"
	"sync"

	"warden/internal/models"
	"warden/internal/service"
)

// UserCache is a session's local copy of the user list and reconciled reviews.
// Merges arrive on the change feed goroutine.
type UserCache struct {
	mu      sync.RWMutex
	users   []models.User
	index   map[string]int
	reviews []service.Review

	// refreshing counts fetches in flight; merged holds rows merged meanwhile.
	refreshing int
	merged     map[string]models.User
}

func NewUserCache() *UserCache {
	return &UserCache{index: map[string]int{}}
}

// BeginRefresh marks a fetch as started. Rows merged until the matching
// Replace or AbortRefresh are replayed over the fetched snapshot.
func (c *UserCache) BeginRefresh() {
	c.mu.Lock()
	c.refreshing++
	if c.merged == nil {
		c.merged = map[string]models.User{}
	}
	c.mu.Unlock()
}

// AbortRefresh ends a fetch that produced no snapshot.
func (c *UserCache) AbortRefresh() {
	c.mu.Lock()
	c.endRefresh()
	c.mu.Unlock()
}

func (c *UserCache) endRefresh() {
	if c.refreshing == 0 {
		return
	}
	c.refreshing--
	if c.refreshing == 0 {
		c.merged = nil
	}
}

// Replace swaps in a freshly fetched snapshot. Feed rows merged while the
// fetch was in flight win over the snapshot's copy of the same user.
func (c *UserCache) Replace(users []models.User, reviews []service.Review) {
	index := make(map[string]int, len(users))
	cp := make([]models.User, len(users))
	copy(cp, users)
	for i, u := range cp {
		index[u.ID] = i
	}

	c.mu.Lock()
	for id, u := range c.merged {
		if i, ok := index[id]; ok {
			cp[i] = u
		}
	}
	c.users = cp
	c.index = index
	c.reviews = reviews
	c.endRefresh()
	c.mu.Unlock()
}

// Merge replaces the cached row with the same id. Unknown ids are ignored.
// It reports whether the cache changed.
func (c *UserCache) Merge(u models.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshing > 0 {
		c.merged[u.ID] = u
	}
	i, ok := c.index[u.ID]
	if !ok {
		return false
	}
	if reflect.DeepEqual(c.users[i], u) {
		return false
	}
	c.users[i] = u
	return true
}

// Users returns a copy of the cached users in fetch order.
func (c *UserCache) Users() []models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.User, len(c.users))
	copy(out, c.users)
	return out
}

// Reviews returns the cached reconciled reviews.
func (c *UserCache) Reviews() []service.Review {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]service.Review(nil), c.reviews...)
}

func (c *UserCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}
