package marketplace

import "sync"

// VersionStamps are the two correlated optimistic-concurrency markers the
// wishlist service returns and expects echoed back on the next mutation.
type VersionStamps struct {
	ListVersion      string `json:"listVersion,omitempty"`
	InventoryVersion string `json:"inventoryVersion,omitempty"`
}

// Complete reports whether both stamps are present.
func (v VersionStamps) Complete() bool {
	return v.ListVersion != "" && v.InventoryVersion != ""
}

// VersionCache remembers the last-known stamps per multiplayer token so a
// mutation can skip its read-ahead round trip. Entries live until process
// restart; a stale entry only costs one extra round trip because every
// mutation re-derives fresh stamps from the upstream response.
type VersionCache struct {
	mu      sync.Mutex
	entries map[string]VersionStamps
}

func NewVersionCache() *VersionCache {
	return &VersionCache{entries: make(map[string]VersionStamps)}
}

// Get returns the cached stamps for token, ok=false when none are cached.
func (c *VersionCache) Get(token string) (VersionStamps, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stamps, ok := c.entries[token]
	return stamps, ok
}

// Set merges non-empty stamp values into any existing entry. A partial
// update never erases the other field.
func (c *VersionCache) Set(token, listVersion, inventoryVersion string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stamps := c.entries[token]
	if listVersion != "" {
		stamps.ListVersion = listVersion
	}
	if inventoryVersion != "" {
		stamps.InventoryVersion = inventoryVersion
	}
	c.entries[token] = stamps
}

// Len reports the number of cached token entries.
func (c *VersionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
