package migration

import (
	"time"

	"github.com/livingcodex/codex/internal/codex/core"
)

// SnapshotVersion is written into every manifest and checked on import.
const SnapshotVersion = "1"

// Snapshot is the JSON persistence format: every node keyed by ID plus a
// manifest. Export followed by Import into a fresh store is lossless for
// every node field and reproduces the same metrics snapshot, which is why
// the manifest carries the component access counters.
type Snapshot struct {
	Nodes    map[string]*core.Node `json:"nodes"`
	Manifest Manifest              `json:"manifest"`
}

// Manifest describes the snapshot.
type Manifest struct {
	Version         string           `json:"version"`
	TotalNodes      int              `json:"total_nodes"`
	LastUpdated     time.Time        `json:"last_updated"`
	ComponentAccess map[string]int64 `json:"component_access"`
}
