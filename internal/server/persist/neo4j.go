package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/livingcodex/codex/internal/codex/core"
	"github.com/livingcodex/codex/internal/codex/migration"
)

// Neo4jConfig holds Neo4j connection configuration.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jBackend persists snapshots in a Neo4j graph. Each node becomes a
// (:Node) carrying its full JSON payload plus the fields worth querying
// from Cypher; forward link halves become [:LINKS] relationships. The
// payload is authoritative on load, the graph shape is a convenience.
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jBackend connects and verifies connectivity.
func NewNeo4jBackend(ctx context.Context, cfg Neo4jConfig) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jBackend{driver: driver, database: database}, nil
}

// Save replaces the stored snapshot.
func (b *Neo4jBackend) Save(ctx context.Context, snap *migration.Snapshot) error {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: b.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `MATCH (n:Node) DETACH DELETE n`, nil); err != nil {
			return nil, fmt.Errorf("clearing nodes: %w", err)
		}
		if _, err := tx.Run(ctx, `MATCH (m:Manifest) DELETE m`, nil); err != nil {
			return nil, fmt.Errorf("clearing manifest: %w", err)
		}

		for id, node := range snap.Nodes {
			payload, err := json.Marshal(node)
			if err != nil {
				return nil, fmt.Errorf("marshaling node %s: %w", id, err)
			}
			query := `
				CREATE (n:Node {
					id: $id,
					type: $type,
					name: $name,
					tombstone: $tombstone,
					payload: $payload
				})
			`
			params := map[string]any{
				"id":        id,
				"type":      node.Type,
				"name":      node.Name,
				"tombstone": node.Tombstone,
				"payload":   string(payload),
			}
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, fmt.Errorf("storing node %s: %w", id, err)
			}
		}

		// Forward halves only; reverse halves are reconstructed from the
		// payloads on load.
		for id, node := range snap.Nodes {
			for _, link := range node.Links {
				if link.Reverse {
					continue
				}
				query := `
					MATCH (a:Node {id: $source}), (b:Node {id: $target})
					CREATE (a)-[:LINKS {id: $link, label: $label}]->(b)
				`
				params := map[string]any{
					"source": id,
					"target": link.Target,
					"link":   link.ID,
					"label":  link.Label,
				}
				if _, err := tx.Run(ctx, query, params); err != nil {
					return nil, fmt.Errorf("storing link %s: %w", link.ID, err)
				}
			}
		}

		manifest, err := json.Marshal(snap.Manifest)
		if err != nil {
			return nil, fmt.Errorf("marshaling manifest: %w", err)
		}
		_, err = tx.Run(ctx, `CREATE (m:Manifest {payload: $payload})`, map[string]any{
			"payload": string(manifest),
		})
		return nil, err
	})
	return err
}

// Load reads the stored snapshot back from the node payloads.
func (b *Neo4jBackend) Load(ctx context.Context) (*migration.Snapshot, error) {
	session := b.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: b.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		snap := &migration.Snapshot{Nodes: make(map[string]*core.Node)}

		manifestResult, err := tx.Run(ctx, `MATCH (m:Manifest) RETURN m.payload AS payload`, nil)
		if err != nil {
			return nil, fmt.Errorf("querying manifest: %w", err)
		}
		record, err := manifestResult.Single(ctx)
		if err != nil {
			return nil, ErrNoSnapshot
		}
		payload, _ := record.Get("payload")
		if err := json.Unmarshal([]byte(payload.(string)), &snap.Manifest); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}

		nodesResult, err := tx.Run(ctx, `MATCH (n:Node) RETURN n.id AS id, n.payload AS payload`, nil)
		if err != nil {
			return nil, fmt.Errorf("querying nodes: %w", err)
		}
		for nodesResult.Next(ctx) {
			record := nodesResult.Record()
			id, _ := record.Get("id")
			payload, _ := record.Get("payload")

			var node core.Node
			if err := json.Unmarshal([]byte(payload.(string)), &node); err != nil {
				return nil, fmt.Errorf("parsing node %v: %w", id, err)
			}
			snap.Nodes[id.(string)] = &node
		}
		return snap, nodesResult.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.(*migration.Snapshot), nil
}

// Close closes the Neo4j connection.
func (b *Neo4jBackend) Close(ctx context.Context) error {
	return b.driver.Close(ctx)
}
