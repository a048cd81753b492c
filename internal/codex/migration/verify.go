package migration

import (
	"fmt"

	"github.com/livingcodex/codex/internal/codex/core"
	"github.com/livingcodex/codex/internal/codex/store"
)

// Verify checks a snapshot's internal consistency before it is allowed into
// a store: manifest version, integrity hashes, bidirectional parent/child
// consistency, and link pairing.
func Verify(snap *Snapshot) error {
	if snap.Manifest.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q", snap.Manifest.Version)
	}

	for id, node := range snap.Nodes {
		if node == nil {
			return fmt.Errorf("node %s: empty entry", id)
		}
		if node.ID != id {
			return fmt.Errorf("node %s: key does not match id %s", id, node.ID)
		}
		if node.Integrity != store.IntegrityHash(node.Content, node.Meta) {
			return fmt.Errorf("node %s: integrity hash mismatch", id)
		}

		// Parent must exist and list this node as a child.
		if node.ParentID != "" {
			parent, ok := snap.Nodes[node.ParentID]
			if !ok {
				return fmt.Errorf("node %s: parent %s missing", id, node.ParentID)
			}
			if !contains(parent.Children, id) {
				return fmt.Errorf("node %s: parent %s does not list it as child", id, node.ParentID)
			}
		}

		// Children must exist and point back.
		for _, childID := range node.Children {
			child, ok := snap.Nodes[childID]
			if !ok {
				return fmt.Errorf("node %s: child %s missing", id, childID)
			}
			if child.ParentID != id {
				return fmt.Errorf("node %s: child %s has parent %q", id, childID, child.ParentID)
			}
		}

		// Every link must have its paired half on the target.
		for _, link := range node.Links {
			target, ok := snap.Nodes[link.Target]
			if !ok {
				return fmt.Errorf("node %s: link %s target %s missing", id, link.ID, link.Target)
			}
			if !hasPair(target, link.ID, id) {
				return fmt.Errorf("node %s: link %s has no paired entry on %s", id, link.ID, link.Target)
			}
		}
	}

	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func hasPair(node *core.Node, linkID, backTarget string) bool {
	for _, l := range node.Links {
		if l.ID == linkID && l.Target == backTarget {
			return true
		}
	}
	return false
}
