package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/livingcodex/codex/internal/codex/core"
	"github.com/livingcodex/codex/internal/codex/migration"
)

var (
	bucketNodes    = []byte("nodes")
	bucketManifest = []byte("manifest")

	keyManifest = []byte("current")
)

// BoltBackend persists snapshots in an embedded bbolt database: one bucket
// of node JSON keyed by ID, one bucket holding the manifest.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (creating if needed) the database at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketNodes, bucketManifest} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("creating bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBackend{db: db}, nil
}

// Save replaces the stored snapshot in a single transaction.
func (b *BoltBackend) Save(ctx context.Context, snap *migration.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketNodes); err != nil {
			return fmt.Errorf("clearing nodes bucket: %w", err)
		}
		nodes, err := tx.CreateBucket(bucketNodes)
		if err != nil {
			return fmt.Errorf("recreating nodes bucket: %w", err)
		}

		for id, node := range snap.Nodes {
			data, err := json.Marshal(node)
			if err != nil {
				return fmt.Errorf("marshaling node %s: %w", id, err)
			}
			if err := nodes.Put([]byte(id), data); err != nil {
				return fmt.Errorf("storing node %s: %w", id, err)
			}
		}

		manifest, err := json.Marshal(snap.Manifest)
		if err != nil {
			return fmt.Errorf("marshaling manifest: %w", err)
		}
		return tx.Bucket(bucketManifest).Put(keyManifest, manifest)
	})
}

// Load reads the stored snapshot. ErrNoSnapshot comes back when Save has
// never run.
func (b *BoltBackend) Load(ctx context.Context) (*migration.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &migration.Snapshot{Nodes: make(map[string]*core.Node)}
	err := b.db.View(func(tx *bolt.Tx) error {
		manifest := tx.Bucket(bucketManifest).Get(keyManifest)
		if manifest == nil {
			return ErrNoSnapshot
		}
		if err := json.Unmarshal(manifest, &snap.Manifest); err != nil {
			return fmt.Errorf("parsing manifest: %w", err)
		}

		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var node core.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return fmt.Errorf("parsing node %s: %w", k, err)
			}
			snap.Nodes[string(k)] = &node
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Close closes the database.
func (b *BoltBackend) Close(ctx context.Context) error {
	return b.db.Close()
}
