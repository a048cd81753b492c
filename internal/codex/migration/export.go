package migration

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/livingcodex/codex/internal/codex/core"
	"github.com/livingcodex/codex/internal/codex/store"
)

// Exporter writes store snapshots.
type Exporter struct {
	store  *store.Store
	writer io.Writer
}

// NewExporter creates a new exporter.
func NewExporter(s *store.Store, w io.Writer) *Exporter {
	return &Exporter{store: s, writer: w}
}

// Export writes the whole store, tombstones included, as one JSON document.
func (e *Exporter) Export() error {
	snap := Build(e.store)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if _, err := e.writer.Write(data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Build assembles an in-memory snapshot of the store.
func Build(s *store.Store) *Snapshot {
	nodes := s.ExportNodes()
	snap := &Snapshot{
		Nodes: make(map[string]*core.Node, len(nodes)),
		Manifest: Manifest{
			Version:         SnapshotVersion,
			LastUpdated:     s.LastUpdated(),
			ComponentAccess: s.AccessCounts(),
		},
	}
	for _, node := range nodes {
		snap.Nodes[node.ID] = node
		if !node.Tombstone {
			snap.Manifest.TotalNodes++
		}
	}
	return snap
}
