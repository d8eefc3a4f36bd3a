package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainScenario = "willow/scenario/v1"
	DomainContent  = "willow/content/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ScenarioHash computes the content-addressed identity hash the generator
// derives scenario IDs from. Stable across runs given identical inputs.
func ScenarioHash(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ScenarioHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScenario, canonical), nil
}

// ContentHash computes the dedup hash for a loosely-typed record. Identity
// and bookkeeping fields (scenario_id, metadata) are excluded so two records
// that differ only in ID or curation state hash identically.
func ContentHash(rec map[string]any) (string, error) {
	content := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == "scenario_id" || k == "metadata" {
			continue
		}
		content[k] = v
	}

	canonical, err := MarshalCanonical(content)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainContent, canonical), nil
}
