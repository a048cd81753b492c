package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livingcodex/codex/internal/codex/migration"
	"github.com/livingcodex/codex/internal/codex/store"
)

func testSnapshot(t *testing.T) *migration.Snapshot {
	t.Helper()
	s := store.New(store.Options{})
	_, _, err := s.Create("concept", "Void", "primordial potential",
		map[string]any{"water_state": "plasma"}, "", "test")
	require.NoError(t, err)
	_, _, err = s.Create("doc", "notes", "text", nil, "", "test")
	require.NoError(t, err)
	return migration.Build(s)
}

func TestBoltSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "codex.db")

	b, err := NewBoltBackend(path)
	require.NoError(t, err)
	defer b.Close(ctx)

	snap := testSnapshot(t)
	require.NoError(t, b.Save(ctx, snap))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, snap.Manifest, loaded.Manifest)
	assert.Len(t, loaded.Nodes, len(snap.Nodes))
	for id, node := range snap.Nodes {
		got, ok := loaded.Nodes[id]
		require.True(t, ok, "node %s missing after load", id)
		assert.Equal(t, node.Integrity, got.Integrity)
		assert.Equal(t, node.Name, got.Name)
	}

	// A loaded snapshot still passes verification.
	assert.NoError(t, migration.Verify(loaded))
}

func TestBoltLoadEmpty(t *testing.T) {
	ctx := context.Background()

	b, err := NewBoltBackend(filepath.Join(t.TempDir(), "codex.db"))
	require.NoError(t, err)
	defer b.Close(ctx)

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestBoltSaveReplacesPrevious(t *testing.T) {
	ctx := context.Background()

	b, err := NewBoltBackend(filepath.Join(t.TempDir(), "codex.db"))
	require.NoError(t, err)
	defer b.Close(ctx)

	require.NoError(t, b.Save(ctx, testSnapshot(t)))

	s := store.New(store.Options{})
	_, _, err = s.Create("concept", "Unity", "collective coherence", nil, "", "test")
	require.NoError(t, err)
	smaller := migration.Build(s)
	require.NoError(t, b.Save(ctx, smaller))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Nodes, 1, "old nodes should not survive a save")
}

// flaky fails a fixed number of times before succeeding.
type flaky struct {
	failures int
	saves    int
	loads    int
	snap     *migration.Snapshot
}

func (f *flaky) Save(ctx context.Context, snap *migration.Snapshot) error {
	f.saves++
	if f.saves <= f.failures {
		return errors.New("transient failure")
	}
	f.snap = snap
	return nil
}

func (f *flaky) Load(ctx context.Context) (*migration.Snapshot, error) {
	f.loads++
	if f.loads <= f.failures {
		return nil, errors.New("transient failure")
	}
	if f.snap == nil {
		return nil, ErrNoSnapshot
	}
	return f.snap, nil
}

func (f *flaky) Close(ctx context.Context) error { return nil }

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	ctx := context.Background()
	backend := &flaky{failures: 2}
	retrying := WithRetry(backend, 3, time.Millisecond)

	require.NoError(t, retrying.Save(ctx, testSnapshot(t)))
	assert.Equal(t, 3, backend.saves)

	loaded, err := retrying.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestRetryingGivesUp(t *testing.T) {
	ctx := context.Background()
	backend := &flaky{failures: 10}
	retrying := WithRetry(backend, 3, time.Millisecond)

	err := retrying.Save(ctx, testSnapshot(t))
	assert.Error(t, err)
	assert.Equal(t, 3, backend.saves)
}

func TestRetryingDoesNotRetryNoSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := &flaky{}
	retrying := WithRetry(backend, 3, time.Millisecond)

	_, err := retrying.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Equal(t, 1, backend.loads)
}
