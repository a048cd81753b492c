package migration

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/livingcodex/codex/internal/codex/core"
	"github.com/livingcodex/codex/internal/codex/store"
)

// Importer loads snapshots into a store.
type Importer struct {
	store  *store.Store
	reader io.Reader
}

// NewImporter creates a new importer.
func NewImporter(s *store.Store, r io.Reader) *Importer {
	return &Importer{store: s, reader: r}
}

// Import reads a snapshot, verifies it, and replaces the store's contents.
// The index and insertion order are rebuilt; nothing is written on a failed
// verification.
func (i *Importer) Import() error {
	var snap Snapshot
	if err := json.NewDecoder(i.reader).Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	return Restore(i.store, &snap)
}

// Restore verifies an in-memory snapshot and installs it into the store.
func Restore(s *store.Store, snap *Snapshot) error {
	if err := Verify(snap); err != nil {
		return fmt.Errorf("verifying snapshot: %w", err)
	}

	nodes := make([]*core.Node, 0, len(snap.Nodes))
	for _, node := range snap.Nodes {
		nodes = append(nodes, node)
	}
	if err := s.Restore(nodes, snap.Manifest.ComponentAccess, snap.Manifest.LastUpdated); err != nil {
		return fmt.Errorf("restoring store: %w", err)
	}
	return nil
}
