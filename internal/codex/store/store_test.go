package store

import (
	"testing"

	"github.com/livingcodex/codex/internal/codex/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{})
}

func TestCreateIsContentAddressed(t *testing.T) {
	s := newTestStore(t)

	id, duplicate, err := s.Create("concept", "Void", "primordial potential",
		map[string]any{"water_state": "plasma"}, "", "test")
	if err != nil {
		t.Fatalf("creating node: %v", err)
	}
	if duplicate {
		t.Fatal("first create should not be a duplicate")
	}
	if len(id) != 16 {
		t.Errorf("id length = %d, want 16", len(id))
	}

	// Same logical content in a fresh store yields the same ID.
	s2 := newTestStore(t)
	id2, _, err := s2.Create("concept", "Void", "primordial potential",
		map[string]any{"water_state": "plasma"}, "", "other")
	if err != nil {
		t.Fatalf("creating node in second store: %v", err)
	}
	if id2 != id {
		t.Errorf("same content produced different ids: %s vs %s", id, id2)
	}
}

func TestCreateIdenticalIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	meta := map[string]any{"water_state": "plasma"}

	id, _, err := s.Create("concept", "Void", "primordial potential", meta, "", "test")
	if err != nil {
		t.Fatalf("creating node: %v", err)
	}

	again, duplicate, err := s.Create("concept", "Void", "primordial potential", meta, "", "test")
	if err != nil {
		t.Fatalf("re-creating node: %v", err)
	}
	if !duplicate {
		t.Error("identical create should report duplicate")
	}
	if again != id {
		t.Errorf("duplicate create returned %s, want %s", again, id)
	}
	if got := s.Metrics().TotalNodes; got != 1 {
		t.Errorf("total nodes = %d, want 1", got)
	}
}

func TestCreateMetadataKeyOrderDoesNotMatter(t *testing.T) {
	s := newTestStore(t)

	id1, _, err := s.Create("doc", "a", "x", map[string]any{"k1": "v1", "k2": "v2"}, "", "test")
	if err != nil {
		t.Fatalf("creating node: %v", err)
	}
	id2, duplicate, err := s.Create("doc", "a", "x", map[string]any{"k2": "v2", "k1": "v1"}, "", "test")
	if err != nil {
		t.Fatalf("creating node with reordered metadata: %v", err)
	}
	if !duplicate || id1 != id2 {
		t.Errorf("metadata key order changed identity: %s vs %s", id1, id2)
	}
}

func TestCreateRejectsMissingParent(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.Create("doc", "orphan", "", nil, "nope", "test")
	if !core.IsInvalidReference(err) {
		t.Errorf("create with missing parent: got %v, want invalid reference", err)
	}
	if got := s.Metrics().TotalNodes; got != 0 {
		t.Errorf("failed create left %d nodes behind", got)
	}
}

func TestCreateWithParentSetsBothDirections(t *testing.T) {
	s := newTestStore(t)

	parentID, _, err := s.Create("concept", "root", "", nil, "", "test")
	if err != nil {
		t.Fatalf("creating parent: %v", err)
	}
	childID, _, err := s.Create("concept", "leaf", "", nil, parentID, "test")
	if err != nil {
		t.Fatalf("creating child: %v", err)
	}

	parent, err := s.Get(parentID, "test")
	if err != nil {
		t.Fatalf("getting parent: %v", err)
	}
	if len(parent.Children) != 1 || parent.Children[0] != childID {
		t.Errorf("parent children = %v, want [%s]", parent.Children, childID)
	}

	child, err := s.Get(childID, "test")
	if err != nil {
		t.Fatalf("getting child: %v", err)
	}
	if child.ParentID != parentID {
		t.Errorf("child parent = %q, want %q", child.ParentID, parentID)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)

	id, _, err := s.Create("doc", "a", "original", map[string]any{"state": "solid"}, "", "test")
	if err != nil {
		t.Fatalf("creating node: %v", err)
	}

	node, err := s.Get(id, "test")
	if err != nil {
		t.Fatalf("getting node: %v", err)
	}
	node.Content = "mutated"
	node.Meta["state"] = "mutated"

	fresh, err := s.Get(id, "test")
	if err != nil {
		t.Fatalf("re-getting node: %v", err)
	}
	if fresh.Content != "original" {
		t.Error("mutating a returned node leaked into the store")
	}
	if fresh.Meta["state"] != "solid" {
		t.Error("mutating returned metadata leaked into the store")
	}
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("missing", "test"); !core.IsNotFound(err) {
		t.Errorf("get missing: got %v, want not found", err)
	}
}

func TestUpdateKeepsIDAndRefreshesIntegrity(t *testing.T) {
	s := newTestStore(t)

	id, _, err := s.Create("doc", "a", "before", map[string]any{"state": "solid"}, "", "test")
	if err != nil {
		t.Fatalf("creating node: %v", err)
	}
	before, _ := s.Get(id, "test")

	content := "after"
	updated, err := s.Update(id, &content, nil, "test")
	if err != nil {
		t.Fatalf("updating node: %v", err)
	}
	if updated.ID != id {
		t.Errorf("update changed id to %s", updated.ID)
	}
	if updated.Content != "after" {
		t.Errorf("content = %q, want %q", updated.Content, "after")
	}
	if updated.Meta["state"] != "solid" {
		t.Error("nil metadata should keep existing metadata")
	}
	if updated.Integrity == before.Integrity {
		t.Error("integrity hash should change with content")
	}
	if bad := s.Verify(); len(bad) != 0 {
		t.Errorf("verify after update flagged %v", bad)
	}
}

func TestUpdateReplacesMetadataWholesale(t *testing.T) {
	s := newTestStore(t)

	id, _, err := s.Create("doc", "a", "", map[string]any{"state": "solid", "category": "x"}, "", "test")
	if err != nil {
		t.Fatalf("creating node: %v", err)
	}

	if _, err := s.Update(id, nil, map[string]any{"state": "liquid"}, "test"); err != nil {
		t.Fatalf("updating metadata: %v", err)
	}

	node, _ := s.Get(id, "test")
	if _, ok := node.Meta["category"]; ok {
		t.Error("metadata replacement should drop keys absent from the new map")
	}
	if got := s.ByTag("state", "liquid"); len(got) != 1 || got[0] != id {
		t.Errorf("index not updated: ByTag(state,liquid) = %v", got)
	}
	if got := s.ByTag("state", "solid"); len(got) != 0 {
		t.Errorf("stale index entry: ByTag(state,solid) = %v", got)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Update("missing", nil, nil, "test"); !core.IsNotFound(err) {
		t.Errorf("update missing: got %v, want not found", err)
	}
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	s := newTestStore(t)

	parentID, _, _ := s.Create("concept", "root", "", nil, "", "test")
	id, _, err := s.Create("doc", "a", "", map[string]any{"state": "solid"}, parentID, "test")
	if err != nil {
		t.Fatalf("creating node: %v", err)
	}

	if err := s.Delete(id, "test"); err != nil {
		t.Fatalf("deleting node: %v", err)
	}

	if _, err := s.Get(id, "test"); !core.IsNotFound(err) {
		t.Errorf("deleted node still retrievable: %v", err)
	}
	if got := s.ByTag("state", "solid"); len(got) != 0 {
		t.Errorf("deleted node still indexed: %v", got)
	}

	parent, _ := s.Get(parentID, "test")
	if len(parent.Children) != 0 {
		t.Errorf("parent still lists deleted child: %v", parent.Children)
	}
}

func TestDeleteWithChildrenLeavesTombstone(t *testing.T) {
	s := newTestStore(t)

	parentID, _, _ := s.Create("concept", "root", "", nil, "", "test")
	childID, _, _ := s.Create("concept", "leaf", "", nil, parentID, "test")

	if err := s.Delete(parentID, "test"); err != nil {
		t.Fatalf("deleting parent: %v", err)
	}

	// The tombstone keeps the child's parent reference resolvable.
	tomb, err := s.Get(parentID, "test")
	if err != nil {
		t.Fatalf("getting tombstone: %v", err)
	}
	if !tomb.Tombstone {
		t.Error("parent with children should become a tombstone")
	}

	m := s.Metrics()
	if m.TotalNodes != 1 {
		t.Errorf("tombstone counted in metrics: total = %d", m.TotalNodes)
	}
	if got := s.ByType("concept"); len(got) != 1 || got[0] != childID {
		t.Errorf("tombstone still indexed: ByType = %v", got)
	}

	// Deleting the last child collects the tombstone.
	if err := s.Delete(childID, "test"); err != nil {
		t.Fatalf("deleting child: %v", err)
	}
	if _, err := s.Get(parentID, "test"); !core.IsNotFound(err) {
		t.Errorf("tombstone not collected after last child left: %v", err)
	}
}

func TestCreateRevivesTombstone(t *testing.T) {
	s := newTestStore(t)

	parentID, _, _ := s.Create("concept", "root", "content", map[string]any{"category": "seed"}, "", "test")
	s.Create("concept", "leaf", "", nil, parentID, "test")

	if err := s.Delete(parentID, "test"); err != nil {
		t.Fatalf("deleting parent: %v", err)
	}

	again, duplicate, err := s.Create("concept", "root", "content", map[string]any{"category": "seed"}, "", "test")
	if err != nil {
		t.Fatalf("re-creating tombstoned node: %v", err)
	}
	if !duplicate || again != parentID {
		t.Errorf("re-create returned (%s, %v), want (%s, true)", again, duplicate, parentID)
	}

	node, _ := s.Get(parentID, "test")
	if node.Tombstone {
		t.Error("re-created node should no longer be a tombstone")
	}
	if got := s.ByTag("category", "seed"); len(got) != 1 {
		t.Errorf("revived node not re-indexed: %v", got)
	}
}

func TestDeleteCleansUpLinks(t *testing.T) {
	s := newTestStore(t)
	l := NewLinker(s, 0)

	aID, _, _ := s.Create("doc", "a", "", nil, "", "test")
	bID, _, _ := s.Create("doc", "b", "", nil, "", "test")
	if _, err := l.AddLink(aID, bID, "references", false); err != nil {
		t.Fatalf("linking: %v", err)
	}

	if err := s.Delete(aID, "test"); err != nil {
		t.Fatalf("deleting linked node: %v", err)
	}

	b, _ := s.Get(bID, "test")
	if len(b.Links) != 0 {
		t.Errorf("surviving node still holds links to deleted node: %v", b.Links)
	}
}

func TestDeleteSelfLinkedNodeCleansUpAllLinks(t *testing.T) {
	s := newTestStore(t)
	l := NewLinker(s, 0)

	hubID, _, _ := s.Create("concept", "hub", "", nil, "", "test")
	if _, err := l.AddLink(hubID, hubID, "self", false); err != nil {
		t.Fatalf("self-linking: %v", err)
	}
	var spokes []string
	for _, name := range []string{"a", "b", "c", "d"} {
		id, _, _ := s.Create("doc", name, "", nil, "", "test")
		if _, err := l.AddLink(hubID, id, "references", false); err != nil {
			t.Fatalf("linking %s: %v", name, err)
		}
		spokes = append(spokes, id)
	}

	if err := s.Delete(hubID, "test"); err != nil {
		t.Fatalf("deleting hub: %v", err)
	}

	for _, id := range spokes {
		node, _ := s.Get(id, "test")
		if len(node.Links) != 0 {
			t.Errorf("node %s still holds link halves after hub delete: %v", id, node.Links)
		}
	}
}

func TestCreateRejectsUnmarshalableMetadata(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.Create("concept", "bad", "", map[string]any{"ch": make(chan int)}, "", "test")
	if !core.IsInvalidMetadata(err) {
		t.Fatalf("create with unmarshalable metadata: %v, want invalid metadata", err)
	}
	if got := s.Metrics().TotalNodes; got != 0 {
		t.Errorf("store holds %d nodes after rejected create, want 0", got)
	}
}

func TestUpdateRejectsUnmarshalableMetadata(t *testing.T) {
	s := newTestStore(t)

	id, _, _ := s.Create("concept", "void", "emptiness", map[string]any{"category": "seed"}, "", "test")

	_, err := s.Update(id, nil, map[string]any{"category": "b", "ch": make(chan int)}, "test")
	if !core.IsInvalidMetadata(err) {
		t.Fatalf("update with unmarshalable metadata: %v, want invalid metadata", err)
	}

	node, _ := s.Get(id, "test")
	if node.Meta["category"] != "seed" {
		t.Errorf("metadata changed by rejected update: %v", node.Meta)
	}
	if bad := s.Verify(); len(bad) != 0 {
		t.Errorf("integrity mismatch after rejected update: %v", bad)
	}
	if ids := s.ByTag("category", "seed"); len(ids) != 1 || ids[0] != id {
		t.Errorf("index lost the node after rejected update: %v", ids)
	}
}

func TestListAllSkipsTombstones(t *testing.T) {
	s := newTestStore(t)

	parentID, _, _ := s.Create("concept", "root", "", nil, "", "test")
	s.Create("concept", "leaf", "", nil, parentID, "test")
	s.Delete(parentID, "test")

	count := 0
	for node := range s.ListAll() {
		if node.Tombstone {
			t.Errorf("tombstone %s surfaced by ListAll", node.ID)
		}
		count++
	}
	if count != 1 {
		t.Errorf("ListAll yielded %d nodes, want 1", count)
	}
}

func TestListAllIsRestartable(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		s.Create("doc", name, "", nil, "", "test")
	}

	seq := s.ListAll()
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != 3 || second != 3 {
		t.Errorf("restarted sequence yielded %d then %d, want 3 and 3", first, second)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	s := newTestStore(t)

	s.Create("concept", "Void", "primordial", map[string]any{"water_state": "plasma"}, "", "seeder")
	s.Create("concept", "Flow", "movement", map[string]any{"water_state": "liquid"}, "", "seeder")
	s.Create("doc", "notes", "text", nil, "", "editor")

	m := s.Metrics()
	if m.TotalNodes != 3 {
		t.Errorf("total nodes = %d, want 3", m.TotalNodes)
	}
	if m.NodesByType["concept"] != 2 || m.NodesByType["doc"] != 1 {
		t.Errorf("nodes by type = %v", m.NodesByType)
	}
	if m.NodesByTag["water_state"]["plasma"] != 1 {
		t.Errorf("nodes by tag = %v", m.NodesByTag)
	}
	if m.ComponentAccess["seeder"] != 2 || m.ComponentAccess["editor"] != 1 {
		t.Errorf("component access = %v", m.ComponentAccess)
	}
	if m.StorageBytes <= 0 {
		t.Errorf("storage bytes = %d, want > 0", m.StorageBytes)
	}
	if m.LastUpdated.IsZero() {
		t.Error("last updated should be set after writes")
	}
}

func TestEmptyComponentRecordedAsUnknown(t *testing.T) {
	s := newTestStore(t)
	s.Create("doc", "a", "", nil, "", "")

	if got := s.Metrics().ComponentAccess["unknown"]; got != 1 {
		t.Errorf("unknown component accesses = %d, want 1", got)
	}
}

func TestVerifyFlagsTampering(t *testing.T) {
	s := newTestStore(t)

	id, _, _ := s.Create("doc", "a", "content", nil, "", "test")
	if bad := s.Verify(); len(bad) != 0 {
		t.Fatalf("fresh store failed verification: %v", bad)
	}

	// Reach inside, bypassing Update's hash refresh.
	s.mu.Lock()
	s.nodes[id].Content = "tampered"
	s.mu.Unlock()

	bad := s.Verify()
	if len(bad) != 1 || bad[0] != id {
		t.Errorf("verify = %v, want [%s]", bad, id)
	}
}
