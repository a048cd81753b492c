package store

import (
	"fmt"
	"strings"
)

// Search fields.
const (
	FieldName    = "name"
	FieldContent = "content"
	FieldTag     = "tag"
)

// Query answers read-only lookups over the store and its index. Results are
// naive case-insensitive substring matches in stable insertion order, not
// relevance-ranked, and never capped; any truncation belongs to the caller's
// presentation layer.
type Query struct {
	store *Store
}

// NewQuery creates a query engine over the store.
func NewQuery(s *Store) *Query {
	return &Query{store: s}
}

// Search returns the IDs of live nodes whose given field contains the query,
// case-insensitively, ordered by node creation. Field is one of name,
// content, or tag; tag matches against the stringified value of any
// metadata entry.
func (q *Query) Search(query, field, component string) ([]string, error) {
	switch field {
	case FieldName, FieldContent, FieldTag:
	case "":
		field = FieldName
	default:
		return nil, fmt.Errorf("unknown search field %q", field)
	}
	needle := strings.ToLower(query)

	s := q.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []string
	for _, id := range s.order {
		node, ok := s.nodes[id]
		if !ok || node.Tombstone {
			continue
		}
		var hit bool
		switch field {
		case FieldName:
			hit = strings.Contains(strings.ToLower(node.Name), needle)
		case FieldContent:
			hit = strings.Contains(strings.ToLower(node.Content), needle)
		case FieldTag:
			for _, v := range node.Meta {
				value, scalar := tagValue(v)
				if scalar && strings.Contains(strings.ToLower(value), needle) {
					hit = true
					break
				}
			}
		}
		if hit {
			matches = append(matches, id)
			s.metrics.RecordAccess(component, id)
		}
	}
	return matches, nil
}

// ByType is a thin wrapper over the index.
func (q *Query) ByType(nodeType, component string) []string {
	ids := q.store.ByType(nodeType)
	for _, id := range ids {
		q.store.RecordAccess(component, id)
	}
	return ids
}

// ByTag is a thin wrapper over the index.
func (q *Query) ByTag(key, value, component string) []string {
	ids := q.store.ByTag(key, value)
	for _, id := range ids {
		q.store.RecordAccess(component, id)
	}
	return ids
}
