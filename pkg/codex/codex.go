// Package codex is the embeddable surface of the node store. Every external
// layer (the HTTP daemon, the CLI, demo scripts) talks to the store through
// this facade and nothing else.
package codex

import (
	"io"
	"iter"

	"github.com/rs/zerolog"

	"github.com/livingcodex/codex/internal/codex/core"
	"github.com/livingcodex/codex/internal/codex/migration"
	"github.com/livingcodex/codex/internal/codex/store"
)

// Node is a stored node.
type Node = core.Node

// Link is one endpoint's view of a labeled relationship.
type Link = core.Link

// Network is a bounded neighborhood snapshot.
type Network = core.Network

// Metrics is a point-in-time statistics snapshot.
type Metrics = core.Metrics

// Codex wires the store, the linker, and the query engine around one shared
// node table. Components identify themselves by name on every call; the
// store counts their accesses.
type Codex struct {
	store  *store.Store
	linker *store.Linker
	query  *store.Query
}

// Options configures a Codex instance.
type Options struct {
	// IndexKeys declares the indexable metadata keys.
	IndexKeys []string
	// MaxAncestorDepth bounds cycle-detection walks (default 10).
	MaxAncestorDepth int
	Logger           *zerolog.Logger
}

// New creates an empty in-memory codex.
func New(opts Options) *Codex {
	s := store.New(store.Options{IndexKeys: opts.IndexKeys, Logger: opts.Logger})
	return &Codex{
		store:  s,
		linker: store.NewLinker(s, opts.MaxAncestorDepth),
		query:  store.NewQuery(s),
	}
}

// Create adds a node and returns its content-addressed ID. duplicate reports
// that identical logical content already existed; the call is idempotent.
func (c *Codex) Create(nodeType, name, content string, meta map[string]any, parentID, component string) (id string, duplicate bool, err error) {
	return c.store.Create(nodeType, name, content, meta, parentID, component)
}

// Get retrieves a node by ID.
func (c *Codex) Get(id, component string) (*Node, error) {
	return c.store.Get(id, component)
}

// Update mutates a node's content and/or metadata in place.
func (c *Codex) Update(id string, content *string, meta map[string]any, component string) (*Node, error) {
	return c.store.Update(id, content, meta, component)
}

// Delete removes a node, tombstoning it while children still reference it.
func (c *Codex) Delete(id, component string) error {
	return c.store.Delete(id, component)
}

// Tombstoned reports whether id survives as a tombstone. It records no
// component access.
func (c *Codex) Tombstoned(id string) bool {
	return c.store.Tombstoned(id)
}

// ListAll iterates over all live nodes.
func (c *Codex) ListAll() iter.Seq[Node] {
	return c.store.ListAll()
}

// Search finds nodes whose field contains the query, case-insensitively,
// in insertion order.
func (c *Codex) Search(query, field, component string) ([]string, error) {
	return c.query.Search(query, field, component)
}

// QueryByType returns the IDs of all nodes with the given type.
func (c *Codex) QueryByType(nodeType, component string) []string {
	return c.query.ByType(nodeType, component)
}

// QueryByTag returns the IDs of all nodes whose metadata has key=value.
func (c *Codex) QueryByTag(key, value, component string) []string {
	return c.query.ByTag(key, value, component)
}

// AddChild attaches child under parent, rejecting cycles.
func (c *Codex) AddChild(parentID, childID string) error {
	return c.linker.AddChild(parentID, childID)
}

// AddLink creates a labeled relationship and returns its link ID.
func (c *Codex) AddLink(aID, bID, label string, oneDirectional bool) (string, error) {
	return c.linker.AddLink(aID, bID, label, oneDirectional)
}

// GetNetwork returns the node's neighborhood up to depth levels, each level
// capped at fanout entries for display.
func (c *Codex) GetNetwork(id string, depth, fanout int) (*Network, error) {
	return c.linker.Network(id, depth, fanout)
}

// MetricsSnapshot returns current store statistics.
func (c *Codex) MetricsSnapshot() Metrics {
	return c.store.Metrics()
}

// Verify recomputes integrity hashes and returns mismatched node IDs.
func (c *Codex) Verify() []string {
	return c.store.Verify()
}

// IndexKeys returns the declared indexable metadata keys.
func (c *Codex) IndexKeys() []string {
	return c.store.IndexKeys()
}

// Export writes a JSON snapshot of the whole store.
func (c *Codex) Export(w io.Writer) error {
	return migration.NewExporter(c.store, w).Export()
}

// Import replaces the store's contents from a JSON snapshot.
func (c *Codex) Import(r io.Reader) error {
	return migration.NewImporter(c.store, r).Import()
}

// Snapshot assembles the snapshot without serializing it, for persistence
// backends that store it structurally.
func (c *Codex) Snapshot() *migration.Snapshot {
	return migration.Build(c.store)
}

// Restore verifies and installs a snapshot built elsewhere.
func (c *Codex) Restore(snap *migration.Snapshot) error {
	return migration.Restore(c.store, snap)
}
