package lower

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/exprgen/internal/ir"
)

// Cache wraps a backend and shares evaluators between structurally identical
// trees. Concurrent requests for the same tree collapse into one lowering.
//
// Failed lowerings are not cached. Trees without a canonical encoding (opaque
// constants) bypass the cache and are lowered on every call.
type Cache struct {
	backend Backend
	logger  *slog.Logger
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[string]*Evaluator

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps backend.
func NewCache(backend Backend, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		backend: backend,
		logger:  logger,
		entries: make(map[string]*Evaluator),
	}
}

// Name returns the wrapped backend's name.
func (c *Cache) Name() string {
	return c.backend.Name()
}

// Lower returns the cached evaluator for node, lowering it on first use.
func (c *Cache) Lower(node ir.Node, params ...Param) (*Evaluator, error) {
	hash, err := ir.TreeHash(node)
	if err != nil {
		c.logger.Debug("cache bypass", "reason", err)
		return c.backend.Lower(node, params...)
	}
	key := cacheKey(hash, params)

	c.mu.RLock()
	ev, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return ev, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		ev, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return ev, nil
		}
		ev, err := c.backend.Lower(node, params...)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = ev
		c.mu.Unlock()
		c.misses.Add(1)
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("lowering shared", "tree", hash)
	}
	return v.(*Evaluator), nil
}

// Len returns the number of cached evaluators.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the number of cache hits and lowerings performed.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// cacheKey includes the parameter list since the same tree lowers
// differently under different parameter bindings. Names are quoted so a
// name holding a separator cannot mimic two parameters.
func cacheKey(hash string, params []Param) string {
	var sb strings.Builder
	sb.WriteString(hash)
	for _, p := range params {
		sb.WriteByte('|')
		sb.WriteString(strconv.Quote(p.Name))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(p.Type), 10))
	}
	return sb.String()
}
