// Package merge combines independently generated record batches into a
// canonical dataset without ID collisions, schema violations, or duplicate
// content.
//
// The engine never raises for bad input records: it routes them to the
// rejected list and keeps going. It fails only when its own precondition is
// violated, i.e. the supplied canonical dataset is already corrupt.
package merge

import (
	"errors"
	"fmt"
	"slices"

	"github.com/willowtree-housing/willow/internal/schema"
	"github.com/willowtree-housing/willow/internal/validator"
	"github.com/willowtree-housing/willow/internal/vocab"
)

// Batch is one incoming candidate batch, in submission order.
type Batch []map[string]any

// Rejection pairs a rejected record with everything wrong with it.
type Rejection struct {
	Record     map[string]any        `json:"record"`
	Violations []validator.Violation `json:"violations"`
}

// Result is the outcome of a single merge call.
type Result struct {
	// Accepted holds the admitted records in input order, already stamped
	// validation_status = validated. Records are deep copies; merge inputs
	// are never mutated.
	Accepted []map[string]any `json:"accepted"`

	// Rejected holds every record that failed the validation gate or
	// collided, in input order.
	Rejected []Rejection `json:"rejected"`

	// DuplicateIDs is the set of scenario_id values that collided with the
	// canonical dataset or with an earlier accepted record in this call.
	DuplicateIDs map[string]bool `json:"-"`
}

// CorruptCanonicalError signals a precondition violation in the supplied
// canonical dataset. The engine refuses to proceed rather than compounding
// corruption.
type CorruptCanonicalError struct {
	Index   int    // position of the offending canonical record
	Message string
}

// Error implements the error interface.
func (e *CorruptCanonicalError) Error() string {
	return fmt.Sprintf("corrupt canonical dataset at record %d: %s", e.Index, e.Message)
}

// IsCorruptCanonical reports whether err is a canonical precondition
// failure. Uses errors.As to handle wrapped errors.
func IsCorruptCanonical(err error) bool {
	var ce *CorruptCanonicalError
	return errors.As(err, &ce)
}

// Merge combines the canonical dataset with one or more incoming batches.
//
// Batches are processed in the order supplied, records within a batch in
// order, so duplicate resolution is deterministic: first seen wins, later
// duplicates are rejected. Canonical records are never reordered or
// mutated; the merged dataset is canonical ++ accepted (see Result.Merged).
func Merge(reg *vocab.Registry, canonical []map[string]any, batches ...Batch) (*Result, error) {
	canonicalIDs, contentSeen, err := indexCanonical(canonical)
	if err != nil {
		return nil, err
	}

	result := &Result{DuplicateIDs: make(map[string]bool)}
	acceptedIDs := make(map[string]bool)

	for _, batch := range batches {
		for _, rec := range batch {
			// Step 1: validation gate. Invalid records are excluded from
			// all further processing.
			if vr := validator.Validate(rec, reg); !vr.Valid {
				result.Rejected = append(result.Rejected, Rejection{
					Record:     rec,
					Violations: vr.Violations,
				})
				continue
			}

			// Valid records are guaranteed a non-empty string scenario_id.
			id := rec["scenario_id"].(string)

			// Steps 2-3: ID collision against canonical and against
			// records already accepted in this same call.
			if canonicalIDs[id] || acceptedIDs[id] {
				result.DuplicateIDs[id] = true
				result.Rejected = append(result.Rejected, Rejection{
					Record: rec,
					Violations: []validator.Violation{{
						FieldPath: "scenario_id",
						Code:      validator.CodeDuplicateID,
						Message:   fmt.Sprintf("scenario_id %q already present in dataset", id),
					}},
				})
				continue
			}

			// Content-level dedup: identical content under a different ID
			// is still a duplicate.
			hash, hashErr := schema.ContentHash(rec)
			if hashErr != nil {
				result.Rejected = append(result.Rejected, Rejection{
					Record: rec,
					Violations: []validator.Violation{{
						FieldPath: "",
						Code:      validator.CodeTypeMismatch,
						Message:   fmt.Sprintf("record content is not canonically hashable: %v", hashErr),
					}},
				})
				continue
			}
			if priorID, dup := contentSeen[hash]; dup {
				result.Rejected = append(result.Rejected, Rejection{
					Record: rec,
					Violations: []validator.Violation{{
						FieldPath: "",
						Code:      validator.CodeDuplicateContent,
						Message:   fmt.Sprintf("record content duplicates scenario %q", priorID),
					}},
				})
				continue
			}

			// Step 4: accept. The engine is the only component allowed to
			// assign validated status, and does so on a copy.
			accepted := schema.CopyRecord(rec)
			accepted["metadata"].(map[string]any)["validation_status"] = schema.StatusValidated
			result.Accepted = append(result.Accepted, accepted)
			acceptedIDs[id] = true
			contentSeen[hash] = id
		}
	}

	return result, nil
}

// indexCanonical builds the ID and content-hash indexes for the canonical
// dataset, verifying its own invariants along the way.
func indexCanonical(canonical []map[string]any) (map[string]bool, map[string]string, error) {
	ids := make(map[string]bool, len(canonical))
	content := make(map[string]string, len(canonical))

	for i, rec := range canonical {
		id, ok := rec["scenario_id"].(string)
		if !ok || id == "" {
			return nil, nil, &CorruptCanonicalError{
				Index:   i,
				Message: "missing or non-string scenario_id",
			}
		}
		if ids[id] {
			return nil, nil, &CorruptCanonicalError{
				Index:   i,
				Message: fmt.Sprintf("duplicate scenario_id %q", id),
			}
		}
		ids[id] = true

		hash, err := schema.ContentHash(rec)
		if err != nil {
			return nil, nil, &CorruptCanonicalError{
				Index:   i,
				Message: fmt.Sprintf("content not canonically hashable: %v", err),
			}
		}
		// Pre-existing content duplicates are tolerated (first wins):
		// indexing must not reject datasets merged before content dedup
		// existed.
		if _, exists := content[hash]; !exists {
			content[hash] = id
		}
	}

	return ids, content, nil
}

// Merged returns canonical ++ accepted. The canonical prefix is the same
// backing elements in original order; pre-existing records are never
// modified.
func (r *Result) Merged(canonical []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(canonical)+len(r.Accepted))
	out = append(out, canonical...)
	out = append(out, r.Accepted...)
	return out
}

// SortedDuplicateIDs returns the colliding IDs in lexical order for
// deterministic reporting.
func (r *Result) SortedDuplicateIDs() []string {
	ids := make([]string, 0, len(r.DuplicateIDs))
	for id := range r.DuplicateIDs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Report summarizes a merge for operators and the audit ledger.
type Report struct {
	AcceptedCount int         `json:"accepted_count"`
	RejectedCount int         `json:"rejected_count"`
	DuplicateIDs  []string    `json:"duplicate_ids"`
	MergedTotal   int         `json:"merged_total"`
	Rejected      []Rejection `json:"rejected,omitempty"`
}

// BuildReport assembles the merge report given the canonical size the merge
// ran against.
func (r *Result) BuildReport(canonicalLen int) Report {
	return Report{
		AcceptedCount: len(r.Accepted),
		RejectedCount: len(r.Rejected),
		DuplicateIDs:  r.SortedDuplicateIDs(),
		MergedTotal:   canonicalLen + len(r.Accepted),
		Rejected:      r.Rejected,
	}
}
