package store

import (
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/livingcodex/codex/internal/codex/core"
)

// Store is the single storage point for all nodes. All components share one
// store handle; none keep nodes of their own. Writers hold the exclusive
// lock across the node table and the index together, so no reader can ever
// observe one without the other's matching state.
type Store struct {
	mu      sync.RWMutex
	nodes   map[string]*core.Node
	order   []string
	index   *Index
	metrics *Collector
	last    time.Time
	log     zerolog.Logger
}

// Options configures a store.
type Options struct {
	// IndexKeys is the declared set of indexable metadata keys. Defaults to
	// DefaultIndexKeys when empty.
	IndexKeys []string
	Logger    *zerolog.Logger
}

// New creates an empty store.
func New(opts Options) *Store {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Store{
		nodes:   make(map[string]*core.Node),
		index:   NewIndex(opts.IndexKeys),
		metrics: NewCollector(log),
		log:     log,
	}
}

// Create adds a node with a content-addressed ID. Creating identical logical
// content again is not an error: the existing ID comes back with duplicate
// set. A computed ID that already belongs to different content fails with
// ErrCollision and mutates nothing. A parent reference is registered in both
// directions as part of the same critical section.
func (s *Store) Create(nodeType, name, content string, meta map[string]any, parentID, component string) (string, bool, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	if err := checkMeta(meta); err != nil {
		return "", false, err
	}
	id := ContentID(nodeType, name, content, meta)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.RecordAccess(component, id)

	if existing, ok := s.nodes[id]; ok {
		if !sameContent(existing, nodeType, name, content, meta) {
			return "", false, fmt.Errorf("%w: %s", core.ErrCollision, id)
		}
		if existing.Tombstone {
			s.revive(existing)
		}
		return id, true, nil
	}

	var parent *core.Node
	if parentID != "" {
		p, ok := s.nodes[parentID]
		if !ok || p.Tombstone {
			return "", false, fmt.Errorf("%w: parent %s", core.ErrInvalidReference, parentID)
		}
		parent = p
	}

	now := time.Now().UTC()
	node := &core.Node{
		ID:        id,
		Type:      nodeType,
		Name:      name,
		Content:   content,
		Meta:      meta,
		Children:  []string{},
		Links:     []core.Link{},
		Created:   now,
		Modified:  now,
		Owner:     component,
		Integrity: IntegrityHash(content, meta),
	}

	s.nodes[id] = node
	s.order = append(s.order, id)
	s.index.Add(id, nodeType, meta)
	if parent != nil {
		node.ParentID = parent.ID
		parent.Children = append(parent.Children, id)
	}
	s.last = now

	s.log.Debug().Str("id", id).Str("type", nodeType).Str("component", component).Msg("node created")
	return id, false, nil
}

// Get returns a copy of a node. Tombstoned nodes come back flagged so
// parent references held by live nodes stay resolvable.
func (s *Store) Get(id, component string) (*core.Node, error) {
	s.mu.RLock()
	node, ok := s.nodes[id]
	var clone *core.Node
	if ok {
		clone = node.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	s.metrics.RecordAccess(component, id)
	return clone, nil
}

// Update mutates a node in place. The ID is a stable handle: it never
// changes, while the integrity hash is recomputed from the new content and
// metadata. A nil content pointer keeps the content; a nil metadata map
// keeps the metadata; a non-nil map replaces it wholesale.
func (s *Store) Update(id string, content *string, meta map[string]any, component string) (*core.Node, error) {
	if meta != nil {
		if err := checkMeta(meta); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok || node.Tombstone {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}

	s.metrics.RecordAccess(component, id)

	if content != nil {
		node.Content = *content
	}
	if meta != nil {
		s.index.Remove(id, node.Type, node.Meta)
		node.Meta = meta
		s.index.Add(id, node.Type, node.Meta)
	}
	node.Modified = time.Now().UTC()
	node.Integrity = IntegrityHash(node.Content, node.Meta)
	s.last = node.Modified

	return node.Clone(), nil
}

// Delete removes a node: it is detached from its parent, both halves of
// every link it participates in are removed, and all index entries go away.
// A node that still has children becomes a tombstone instead of vanishing,
// so no child is left with a dangling parent reference.
func (s *Store) Delete(id, component string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok || node.Tombstone {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}

	s.metrics.RecordAccess(component, id)

	s.detachFromParent(node)

	// Remove both halves of every link touching this node. Detach the slice
	// before walking it: a self-link resolves back to this node, and dropLink
	// compacting the slice mid-iteration would skip the entry after it.
	links := node.Links
	node.Links = []core.Link{}
	for _, link := range links {
		if other, ok := s.nodes[link.Target]; ok {
			other.Links = dropLink(other.Links, link.ID)
		}
	}

	s.index.Remove(id, node.Type, node.Meta)
	s.order = dropID(s.order, id)
	s.last = time.Now().UTC()

	if len(node.Children) > 0 {
		node.Tombstone = true
		s.log.Debug().Str("id", id).Int("children", len(node.Children)).Msg("node tombstoned")
		return nil
	}
	delete(s.nodes, id)
	s.log.Debug().Str("id", id).Msg("node deleted")
	return nil
}

// Tombstoned reports whether id currently exists as a tombstone. Unlike Get
// it records no component access, so internal checks do not skew counters.
func (s *Store) Tombstoned(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[id]
	return ok && node.Tombstone
}

// ListAll iterates over live nodes in ID order. Membership is snapshotted at
// call time; node copies are taken lazily, and the sequence is restartable.
func (s *Store) ListAll() iter.Seq[core.Node] {
	s.mu.RLock()
	ids := make([]string, 0, len(s.nodes))
	for id, node := range s.nodes {
		if !node.Tombstone {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	return func(yield func(core.Node) bool) {
		for _, id := range ids {
			s.mu.RLock()
			node, ok := s.nodes[id]
			var clone *core.Node
			if ok && !node.Tombstone {
				clone = node.Clone()
			}
			s.mu.RUnlock()
			if clone == nil {
				continue
			}
			if !yield(*clone) {
				return
			}
		}
	}
}

// ByType returns the IDs of all live nodes with the given type.
func (s *Store) ByType(nodeType string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.ByType(nodeType)
}

// ByTag returns the IDs of all live nodes whose metadata has key=value.
func (s *Store) ByTag(key, value string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.ByTag(key, value)
}

// IndexKeys returns the declared indexable metadata keys.
func (s *Store) IndexKeys() []string {
	return s.index.Keys()
}

// Metrics assembles a point-in-time statistics snapshot. Storage size is the
// documented approximation: content bytes plus marshaled metadata bytes.
func (s *Store) Metrics() core.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := core.Metrics{
		NodesByType: make(map[string]int),
		NodesByTag:  make(map[string]map[string]int),
		LastUpdated: s.last,
	}
	for _, node := range s.nodes {
		if node.Tombstone {
			continue
		}
		m.TotalNodes++
		m.NodesByType[node.Type]++
		m.StorageBytes += int64(len(node.Content) + len(canonicalMeta(node.Meta)))
	}
	for _, key := range s.index.Keys() {
		m.NodesByTag[key] = s.index.TagCounts(key)
	}
	m.ComponentAccess = s.metrics.AccessCounts()
	return m
}

// RecordAccess exposes the access counter for read paths that bypass Get,
// such as query results assembled from index IDs.
func (s *Store) RecordAccess(component, nodeID string) {
	s.metrics.RecordAccess(component, nodeID)
}

// Verify recomputes every node's integrity hash and returns the IDs whose
// stored hash no longer matches.
func (s *Store) Verify() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bad []string
	for id, node := range s.nodes {
		if node.Integrity != IntegrityHash(node.Content, node.Meta) {
			bad = append(bad, id)
		}
	}
	sort.Strings(bad)
	return bad
}

// LastUpdated returns the time of the most recent mutation.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// ExportNodes returns deep copies of every node, tombstones included, for
// snapshot export.
func (s *Store) ExportNodes() []*core.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*core.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node.Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// AccessCounts returns the per-component access counters.
func (s *Store) AccessCounts() map[string]int64 {
	return s.metrics.AccessCounts()
}

// Restore replaces the store's contents from snapshot data. The index, the
// insertion order, and the access counters are rebuilt; the caller is
// responsible for having validated the nodes first.
func (s *Store) Restore(nodes []*core.Node, access map[string]int64, lastUpdated time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[string]*core.Node, len(nodes))
	for _, node := range nodes {
		if _, ok := fresh[node.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s", core.ErrCollision, node.ID)
		}
		fresh[node.ID] = node.Clone()
	}

	s.nodes = fresh
	s.index = NewIndex(s.index.Keys())
	s.order = s.order[:0]

	live := make([]*core.Node, 0, len(fresh))
	for _, node := range fresh {
		if !node.Tombstone {
			live = append(live, node)
		}
	}
	// Creation order drives search result ordering; the snapshot's node map
	// carries no order, so rebuild it from timestamps.
	sort.Slice(live, func(i, j int) bool {
		if !live[i].Created.Equal(live[j].Created) {
			return live[i].Created.Before(live[j].Created)
		}
		return live[i].ID < live[j].ID
	})
	for _, node := range live {
		s.order = append(s.order, node.ID)
		s.index.Add(node.ID, node.Type, node.Meta)
	}

	s.metrics.Restore(access)
	s.last = lastUpdated
	return nil
}

// Internal helpers. Callers hold the write lock.

func (s *Store) touch() {
	s.last = time.Now().UTC()
}

func (s *Store) detachFromParent(node *core.Node) {
	if node.ParentID == "" {
		return
	}
	parent, ok := s.nodes[node.ParentID]
	node.ParentID = ""
	if !ok {
		return
	}
	parent.Children = dropID(parent.Children, node.ID)
	// A tombstone whose last child reference goes away can finally be
	// collected.
	if parent.Tombstone && len(parent.Children) == 0 {
		delete(s.nodes, parent.ID)
	}
}

func (s *Store) revive(node *core.Node) {
	node.Tombstone = false
	now := time.Now().UTC()
	node.Modified = now
	s.order = append(s.order, node.ID)
	s.index.Add(node.ID, node.Type, node.Meta)
	s.last = now
	s.log.Debug().Str("id", node.ID).Msg("tombstone revived")
}

func sameContent(node *core.Node, nodeType, name, content string, meta map[string]any) bool {
	return node.Type == nodeType &&
		node.Name == name &&
		node.Content == content &&
		string(canonicalMeta(node.Meta)) == string(canonicalMeta(meta))
}

func dropID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func dropLink(links []core.Link, linkID string) []core.Link {
	out := links[:0]
	for _, l := range links {
		if l.ID != linkID {
			out = append(out, l)
		}
	}
	return out
}
