package octree

import (
	lru "github.com/hashicorp/golang-lru"

	"go.viam.com/lidarexport/pointcloud"
)

// maxCachedNodes only bounds the entry count of the underlying LRU; the byte budget is
// what actually limits the cache.
const maxCachedNodes = 1 << 30

// CacheStats describes how the node cache has been used so far.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Bytes     int64
	Budget    int64
}

// nodeCache keeps decoded leaf tiles in least recently used order and evicts until the
// decoded size of everything it holds fits the budget.
type nodeCache struct {
	lru     *lru.Cache
	stats   CacheStats
	purging bool
}

func newNodeCache(budget int64) (*nodeCache, error) {
	c := &nodeCache{stats: CacheStats{Budget: budget}}
	cache, err := lru.NewWithEvict(maxCachedNodes, func(_, value interface{}) {
		c.stats.Bytes -= nodeCost(value.([]pointcloud.Point))
		if !c.purging {
			c.stats.Evictions++
		}
	})
	if err != nil {
		return nil, err
	}
	c.lru = cache
	return c, nil
}

func nodeCost(points []pointcloud.Point) int64 {
	return int64(len(points)) * decodedPointSize
}

func (c *nodeCache) get(idx uint32) ([]pointcloud.Point, bool) {
	value, ok := c.lru.Get(idx)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return value.([]pointcloud.Point), true
}

// add caches the points of node idx. Nodes that alone exceed the budget are not kept.
func (c *nodeCache) add(idx uint32, points []pointcloud.Point) {
	cost := nodeCost(points)
	if cost > c.stats.Budget || c.lru.Contains(idx) {
		return
	}
	c.lru.Add(idx, points)
	c.stats.Bytes += cost
	for c.stats.Bytes > c.stats.Budget {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// purge drops every cached node. Dropped nodes are not counted as evictions.
func (c *nodeCache) purge() {
	c.purging = true
	c.lru.Purge()
	c.purging = false
}
