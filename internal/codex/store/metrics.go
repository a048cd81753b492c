package store

import (
	"sync"

	"github.com/rs/zerolog"
)

// Collector tracks per-component access counts. It carries its own lock so
// read paths holding the store's read lock can still bump counters
// concurrently.
type Collector struct {
	mu     sync.Mutex
	access map[string]int64
	log    zerolog.Logger
}

// NewCollector creates an empty collector.
func NewCollector(log zerolog.Logger) *Collector {
	return &Collector{
		access: make(map[string]int64),
		log:    log,
	}
}

// RecordAccess increments the counter for a component touching a node.
func (c *Collector) RecordAccess(component, nodeID string) {
	if component == "" {
		component = "unknown"
	}
	c.mu.Lock()
	c.access[component]++
	c.mu.Unlock()
	c.log.Debug().Str("component", component).Str("node", nodeID).Msg("access")
}

// AccessCounts returns a copy of the per-component counters.
func (c *Collector) AccessCounts() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int64, len(c.access))
	for component, n := range c.access {
		counts[component] = n
	}
	return counts
}

// Restore replaces the counters, used when importing a snapshot.
func (c *Collector) Restore(counts map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access = make(map[string]int64, len(counts))
	for component, n := range counts {
		c.access[component] = n
	}
}
