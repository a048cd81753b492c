package store

import (
	"fmt"
	"sort"
)

// DefaultIndexKeys are the metadata keys indexed when no explicit set is
// configured.
var DefaultIndexKeys = []string{"category", "state", "owner", "water_state"}

// Index maintains the secondary lookup tables: node type to IDs, and
// (key,value) to IDs for a declared set of indexable metadata keys. It is
// not safe for concurrent use on its own; the owning Store's lock guards
// every mutation and lookup, so index and node table can never drift apart.
type Index struct {
	keys   map[string]struct{}
	byType map[string]map[string]struct{}
	byTag  map[string]map[string]map[string]struct{}
}

// NewIndex creates an index over the given metadata keys.
func NewIndex(keys []string) *Index {
	if len(keys) == 0 {
		keys = DefaultIndexKeys
	}
	ix := &Index{
		keys:   make(map[string]struct{}, len(keys)),
		byType: make(map[string]map[string]struct{}),
		byTag:  make(map[string]map[string]map[string]struct{}),
	}
	for _, k := range keys {
		ix.keys[k] = struct{}{}
		ix.byTag[k] = make(map[string]map[string]struct{})
	}
	return ix
}

// Keys returns the configured indexable metadata keys.
func (ix *Index) Keys() []string {
	keys := make([]string, 0, len(ix.keys))
	for k := range ix.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Add registers a node under its type and indexable tags.
func (ix *Index) Add(id, nodeType string, meta map[string]any) {
	if ix.byType[nodeType] == nil {
		ix.byType[nodeType] = make(map[string]struct{})
	}
	ix.byType[nodeType][id] = struct{}{}

	for key := range ix.keys {
		if value, ok := tagValue(meta[key]); ok {
			if ix.byTag[key][value] == nil {
				ix.byTag[key][value] = make(map[string]struct{})
			}
			ix.byTag[key][value][id] = struct{}{}
		}
	}
}

// Remove drops a node from its type and tag entries.
func (ix *Index) Remove(id, nodeType string, meta map[string]any) {
	if ids := ix.byType[nodeType]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(ix.byType, nodeType)
		}
	}

	for key := range ix.keys {
		value, ok := tagValue(meta[key])
		if !ok {
			continue
		}
		if ids := ix.byTag[key][value]; ids != nil {
			delete(ids, id)
			if len(ids) == 0 {
				delete(ix.byTag[key], value)
			}
		}
	}
}

// ByType returns the IDs of all nodes with the given type, sorted.
func (ix *Index) ByType(nodeType string) []string {
	return sortedIDs(ix.byType[nodeType])
}

// ByTag returns the IDs of all nodes whose metadata has key=value, sorted.
// Unconfigured keys yield no results.
func (ix *Index) ByTag(key, value string) []string {
	values, ok := ix.byTag[key]
	if !ok {
		return nil
	}
	return sortedIDs(values[value])
}

// Indexable reports whether a metadata key participates in the tag index.
func (ix *Index) Indexable(key string) bool {
	_, ok := ix.keys[key]
	return ok
}

// TagCounts returns value -> node count for one indexable key.
func (ix *Index) TagCounts(key string) map[string]int {
	counts := make(map[string]int)
	for value, ids := range ix.byTag[key] {
		if len(ids) > 0 {
			counts[value] = len(ids)
		}
	}
	return counts
}

func sortedIDs(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// tagValue stringifies a scalar metadata value for indexing. Composite values
// (maps, slices) are not indexed; they would fragment the tag tables without
// being queryable as a single tag.
func tagValue(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}
