package core

import (
	"time"
)

// Node is the atomic storable unit. Everything the system manages is a node:
// concepts, documents, components, even relationship endpoints.
type Node struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"metadata"`
	ParentID  string         `json:"parent_id,omitempty"`
	Children  []string       `json:"children"`
	Links     []Link         `json:"links"`
	Created   time.Time      `json:"created_at"`
	Modified  time.Time      `json:"updated_at"`
	Owner     string         `json:"owner_component"`
	Tombstone bool           `json:"tombstone,omitempty"`
	Integrity string         `json:"integrity"`
}

// Link is one endpoint's view of a labeled relationship. Every link has a
// forward entry on the source and a paired entry on the target carrying the
// same ID; the paired entry is hidden when the relation was declared
// one-directional, so deletion cleanup still finds both halves.
type Link struct {
	ID      string `json:"id"`
	Target  string `json:"target"`
	Label   string `json:"label"`
	Reverse bool   `json:"reverse,omitempty"`
	Hidden  bool   `json:"hidden,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Meta != nil {
		c.Meta = make(map[string]any, len(n.Meta))
		for k, v := range n.Meta {
			c.Meta[k] = v
		}
	}
	c.Children = append([]string(nil), n.Children...)
	c.Links = append([]Link(nil), n.Links...)
	return &c
}

// VisibleLinks returns the node's links without hidden bookkeeping entries.
func (n *Node) VisibleLinks() []Link {
	links := make([]Link, 0, len(n.Links))
	for _, l := range n.Links {
		if !l.Hidden {
			links = append(links, l)
		}
	}
	return links
}

// Network is a bounded snapshot of a node's neighborhood. Depth 0 marks a
// leaf that was not expanded. Truncated reports that a level was cut to the
// fan-out limit; this is a presentation limit, never data loss.
type Network struct {
	ID        string         `json:"id"`
	Depth     int            `json:"depth"`
	Type      string         `json:"type,omitempty"`
	Name      string         `json:"name,omitempty"`
	Children  []*Network     `json:"children,omitempty"`
	Links     []*NetworkLink `json:"links"`
	Truncated bool           `json:"truncated,omitempty"`
}

// NetworkLink is a labeled edge inside a Network snapshot.
type NetworkLink struct {
	Label string   `json:"label"`
	Node  *Network `json:"node"`
}

// Metrics is a point-in-time view of store statistics. StorageBytes is an
// explicit approximation: content length plus marshaled metadata length,
// summed over live nodes.
type Metrics struct {
	TotalNodes      int                       `json:"total_nodes"`
	NodesByType     map[string]int            `json:"nodes_by_type"`
	NodesByTag      map[string]map[string]int `json:"nodes_by_tag"`
	ComponentAccess map[string]int64          `json:"component_access_count"`
	StorageBytes    int64                     `json:"approx_storage_size_bytes"`
	LastUpdated     time.Time                 `json:"last_updated"`
}
