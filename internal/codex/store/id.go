package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/livingcodex/codex/internal/codex/core"
)

// idLength is the number of hex characters kept from the digest.
const idLength = 16

// canonicalMeta marshals metadata with sorted keys so logically equal maps
// always hash the same.
func canonicalMeta(meta map[string]any) []byte {
	if len(meta) == 0 {
		return []byte("{}")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		// Create and Update reject unmarshalable metadata via checkMeta
		// before any state changes; a failure here is a programming error.
		panic(fmt.Sprintf("marshaling metadata: %v", err))
	}
	return data
}

// checkMeta rejects metadata that cannot be marshaled to JSON. Mutation
// paths call it before touching any state so a bad map never half-applies.
func checkMeta(meta map[string]any) error {
	if len(meta) == 0 {
		return nil
	}
	if _, err := json.Marshal(meta); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidMetadata, err)
	}
	return nil
}

// ContentID computes the content-addressed ID for a node's defining fields.
// Identical logical content always yields the identical ID.
func ContentID(nodeType, name, content string, meta map[string]any) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%s", nodeType, name, content, canonicalMeta(meta))))
	return fmt.Sprintf("%x", sum)[:idLength]
}

// IntegrityHash computes the integrity digest over a node's mutable fields.
// The ID stays stable across updates; this hash does not.
func IntegrityHash(content string, meta map[string]any) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", content, canonicalMeta(meta))))
	return fmt.Sprintf("%x", sum)
}
