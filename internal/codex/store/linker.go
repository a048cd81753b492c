package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/livingcodex/codex/internal/codex/core"
)

// Traversal bounds used when a caller passes no explicit limits. The
// ancestor walk bound matches the depth-limited traversal the hierarchy was
// designed around; the fan-out bound only trims Network output for display.
const (
	DefaultMaxAncestorDepth = 10
	DefaultMaxFanout        = 10
)

// Linker manages the parent/child hierarchy and labeled links between
// nodes. It holds a shared store handle; every mutation runs inside the
// store's write critical section.
type Linker struct {
	store            *Store
	maxAncestorDepth int
}

// NewLinker creates a linker over the store. maxAncestorDepth bounds the
// cycle-detection walk; zero means DefaultMaxAncestorDepth.
func NewLinker(s *Store, maxAncestorDepth int) *Linker {
	if maxAncestorDepth <= 0 {
		maxAncestorDepth = DefaultMaxAncestorDepth
	}
	return &Linker{store: s, maxAncestorDepth: maxAncestorDepth}
}

// AddChild attaches child under parent. The ancestor chain of the parent is
// walked up to the configured depth; if the child is found there the call
// fails with ErrCycleDetected and mutates nothing. A child that already has
// a parent is re-parented: the old edge is detached in the same atomic
// operation.
func (l *Linker) AddChild(parentID, childID string) error {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.nodes[parentID]
	if !ok || parent.Tombstone {
		return fmt.Errorf("%w: parent %s", core.ErrInvalidReference, parentID)
	}
	child, ok := s.nodes[childID]
	if !ok || child.Tombstone {
		return fmt.Errorf("%w: child %s", core.ErrInvalidReference, childID)
	}
	if parentID == childID {
		return fmt.Errorf("%w: %s cannot parent itself", core.ErrCycleDetected, parentID)
	}
	if l.isAncestor(childID, parentID) {
		return fmt.Errorf("%w: %s is an ancestor of %s", core.ErrCycleDetected, childID, parentID)
	}

	if child.ParentID == parentID {
		return nil
	}
	if child.ParentID != "" {
		s.detachFromParent(child)
	}
	child.ParentID = parentID
	parent.Children = append(parent.Children, childID)
	s.touch()
	return nil
}

// AddLink creates a labeled relationship between two nodes and returns its
// ID. A forward entry lands on a; unless the relation is declared
// one-directional a visible reverse entry lands on b. One-directional links
// still leave a hidden entry on b so deleting either endpoint cleans up
// both halves.
func (l *Linker) AddLink(aID, bID, label string, oneDirectional bool) (string, error) {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.nodes[aID]
	if !ok || a.Tombstone {
		return "", fmt.Errorf("%w: source %s", core.ErrInvalidReference, aID)
	}
	b, ok := s.nodes[bID]
	if !ok || b.Tombstone {
		return "", fmt.Errorf("%w: target %s", core.ErrInvalidReference, bID)
	}

	linkID := uuid.NewString()
	a.Links = append(a.Links, core.Link{ID: linkID, Target: bID, Label: label})
	b.Links = append(b.Links, core.Link{ID: linkID, Target: aID, Label: label, Reverse: true, Hidden: oneDirectional})
	s.touch()

	s.log.Debug().Str("link", linkID).Str("source", aID).Str("target", bID).Str("label", label).Msg("link created")
	return linkID, nil
}

// Network returns a snapshot of the node and its child/linked nodes up to
// depth levels. A depth of zero or less yields a leaf marker. Each level's
// children and links are capped at fanout entries (DefaultMaxFanout when
// zero); truncation is a display bound, flagged on the result, and loses no
// stored data.
func (l *Linker) Network(id string, depth, fanout int) (*core.Network, error) {
	if fanout <= 0 {
		fanout = DefaultMaxFanout
	}
	s := l.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok || node.Tombstone {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return l.expand(node, depth, fanout, map[string]bool{}), nil
}

// expand builds one level of the network tree. Caller holds the read lock.
func (l *Linker) expand(node *core.Node, depth, fanout int, visited map[string]bool) *core.Network {
	if depth <= 0 || visited[node.ID] {
		return &core.Network{ID: node.ID, Depth: 0}
	}
	visited[node.ID] = true

	view := &core.Network{
		ID:    node.ID,
		Depth: depth,
		Type:  node.Type,
		Name:  node.Name,
		Links: []*core.NetworkLink{},
	}

	for i, childID := range node.Children {
		if i >= fanout {
			view.Truncated = true
			break
		}
		child, ok := l.store.nodes[childID]
		if !ok {
			continue
		}
		view.Children = append(view.Children, l.expand(child, depth-1, fanout, visited))
	}

	shown := 0
	for _, link := range node.Links {
		if link.Hidden {
			continue
		}
		if shown >= fanout {
			view.Truncated = true
			break
		}
		target, ok := l.store.nodes[link.Target]
		if !ok || target.Tombstone {
			continue
		}
		view.Links = append(view.Links, &core.NetworkLink{
			Label: link.Label,
			Node:  l.expand(target, depth-1, fanout, visited),
		})
		shown++
	}

	return view
}

// isAncestor walks up from startID's ancestor chain looking for targetID,
// giving up after maxAncestorDepth levels. Caller holds the write lock.
func (l *Linker) isAncestor(targetID, startID string) bool {
	current := startID
	for i := 0; i < l.maxAncestorDepth; i++ {
		node, ok := l.store.nodes[current]
		if !ok || node.ParentID == "" {
			return false
		}
		if node.ParentID == targetID {
			return true
		}
		current = node.ParentID
	}
	return false
}
