// Package validator checks scenario records for structural shape and
// vocabulary membership, producing machine-addressable violations.
//
// Validation is pure and idempotent: it never aborts on malformed input.
// Missing or wrong-typed fields are themselves violations, so a single pass
// reports everything wrong with a record. Dataset-scoped checks (scenario_id
// uniqueness, content dedup) belong to the merge engine, not here.
package validator

import (
	"fmt"
	"time"

	"github.com/willowtree-housing/willow/internal/schema"
	"github.com/willowtree-housing/willow/internal/vocab"
)

// Violation codes.
const (
	CodeMissingField     = "MISSING_FIELD"     // required field absent
	CodeTypeMismatch     = "TYPE_MISMATCH"     // field has the wrong JSON type
	CodeEmptyField       = "EMPTY_FIELD"       // required field present but empty
	CodeEnumViolation    = "ENUM_VIOLATION"    // value not in the registry category
	CodeTimestampInvalid = "TIMESTAMP_INVALID" // timestamp fails ISO-8601 parsing
	CodeTimestampOrder   = "TIMESTAMP_ORDER"   // last_updated precedes created_at
	CodeDuplicateID      = "DUPLICATE_ID"      // assigned by the merge engine only
	CodeDuplicateContent = "DUPLICATE_CONTENT" // assigned by the merge engine only
)

// Violation is a single reported deviation from the record data model.
// FieldPath uses dotted/indexed notation (e.g. "messages[2].emotional_state")
// so violations are machine-addressable, not just human-readable.
type Violation struct {
	FieldPath string `json:"field_path"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Error renders the violation in diagnostic form.
func (v Violation) Error() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.FieldPath, v.Message)
}

// Result holds the outcome of validating one record.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Validate checks one JSON-decoded record against the data model and the
// given registry. Checks run in a fixed order: structural shape, required
// non-empty fields, enum membership, then cross-field timestamp ordering.
// Returns all violations found (does not fail-fast) and never panics on
// malformed input.
func Validate(record any, reg *vocab.Registry) Result {
	var v []Violation

	rec, ok := record.(map[string]any)
	if !ok {
		v = append(v, Violation{
			FieldPath: "",
			Code:      CodeTypeMismatch,
			Message:   fmt.Sprintf("record must be an object, got %s", jsonTypeName(record)),
		})
		return Result{Valid: false, Violations: v}
	}

	v = append(v, checkString(rec, "scenario_id")...)
	v = append(v, checkString(rec, "title")...)
	v = append(v, checkString(rec, "description")...)
	v = append(v, checkVulnerabilities(rec, reg)...)
	v = append(v, checkString(rec, "scenario")...)
	v = append(v, checkMessages(rec, reg)...)
	v = append(v, checkResponses(rec)...)
	v = append(v, checkMetadata(rec, reg)...)

	return Result{Valid: len(v) == 0, Violations: v}
}

// checkString validates a required non-empty top-level string field.
func checkString(rec map[string]any, field string) []Violation {
	raw, present := rec[field]
	if !present {
		return []Violation{missing(field)}
	}
	s, ok := raw.(string)
	if !ok {
		return []Violation{mismatch(field, "string", raw)}
	}
	if s == "" {
		return []Violation{empty(field)}
	}
	return nil
}

// checkVulnerabilities validates the vulnerabilities list: present,
// non-empty, all strings, all registry-known.
func checkVulnerabilities(rec map[string]any, reg *vocab.Registry) []Violation {
	raw, present := rec["vulnerabilities"]
	if !present {
		return []Violation{missing("vulnerabilities")}
	}
	list, ok := raw.([]any)
	if !ok {
		return []Violation{mismatch("vulnerabilities", "array", raw)}
	}
	if len(list) == 0 {
		return []Violation{empty("vulnerabilities")}
	}

	var errs []Violation
	for i, elem := range list {
		path := fmt.Sprintf("vulnerabilities[%d]", i)
		s, ok := elem.(string)
		if !ok {
			errs = append(errs, mismatch(path, "string", elem))
			continue
		}
		if !reg.Contains(vocab.CategoryVulnerabilities, s) {
			errs = append(errs, enumViolation(path, vocab.CategoryVulnerabilities, s))
		}
	}
	return errs
}

// checkMessages validates the dialogue turns: present, non-empty, each an
// object with non-empty content, a registry-known role, and a registry-known
// emotional state (or the neutral sentinel).
func checkMessages(rec map[string]any, reg *vocab.Registry) []Violation {
	raw, present := rec["messages"]
	if !present {
		return []Violation{missing("messages")}
	}
	list, ok := raw.([]any)
	if !ok {
		return []Violation{mismatch("messages", "array", raw)}
	}
	if len(list) == 0 {
		return []Violation{empty("messages")}
	}

	var errs []Violation
	for i, elem := range list {
		path := fmt.Sprintf("messages[%d]", i)
		msg, ok := elem.(map[string]any)
		if !ok {
			errs = append(errs, mismatch(path, "object", elem))
			continue
		}

		role, roleErrs := requireStringField(msg, path, "role")
		errs = append(errs, roleErrs...)
		if role != "" && !reg.Contains(vocab.CategoryRoles, role) {
			errs = append(errs, enumViolation(path+".role", vocab.CategoryRoles, role))
		}

		_, contentErrs := requireStringField(msg, path, "content")
		errs = append(errs, contentErrs...)

		state, stateErrs := requireStringField(msg, path, "emotional_state")
		errs = append(errs, stateErrs...)
		// "neutral" is a universal sentinel, valid regardless of registry.
		if state != "" && state != schema.NeutralEmotionalState &&
			!reg.Contains(vocab.CategoryEmotionalStates, state) {
			errs = append(errs, enumViolation(path+".emotional_state", vocab.CategoryEmotionalStates, state))
		}
	}
	return errs
}

// checkResponses validates the responses list shallowly: it must be a list
// of objects. Response content is free-form and not interpreted here.
func checkResponses(rec map[string]any) []Violation {
	raw, present := rec["responses"]
	if !present {
		return []Violation{missing("responses")}
	}
	list, ok := raw.([]any)
	if !ok {
		return []Violation{mismatch("responses", "array", raw)}
	}

	var errs []Violation
	for i, elem := range list {
		if _, ok := elem.(map[string]any); !ok {
			errs = append(errs, mismatch(fmt.Sprintf("responses[%d]", i), "object", elem))
		}
	}
	return errs
}

// checkMetadata validates the metadata object: required string fields, a
// registry-known validation status, parseable timestamps, and
// last_updated >= created_at.
func checkMetadata(rec map[string]any, reg *vocab.Registry) []Violation {
	raw, present := rec["metadata"]
	if !present {
		return []Violation{missing("metadata")}
	}
	meta, ok := raw.(map[string]any)
	if !ok {
		return []Violation{mismatch("metadata", "object", raw)}
	}

	var errs []Violation

	createdRaw, createdErrs := requireStringField(meta, "metadata", "created_at")
	errs = append(errs, createdErrs...)
	updatedRaw, updatedErrs := requireStringField(meta, "metadata", "last_updated")
	errs = append(errs, updatedErrs...)

	status, statusErrs := requireStringField(meta, "metadata", "validation_status")
	errs = append(errs, statusErrs...)
	if status != "" && !reg.Contains(vocab.CategoryValidationStatuses, status) {
		errs = append(errs, enumViolation("metadata.validation_status", vocab.CategoryValidationStatuses, status))
	}

	// Timestamps parse at the validation boundary; the wire keeps raw strings.
	var created, updated time.Time
	var createdOK, updatedOK bool
	if createdRaw != "" {
		t, err := schema.ParseTimestamp(createdRaw)
		if err != nil {
			errs = append(errs, Violation{
				FieldPath: "metadata.created_at",
				Code:      CodeTimestampInvalid,
				Message:   err.Error(),
			})
		} else {
			created, createdOK = t, true
		}
	}
	if updatedRaw != "" {
		t, err := schema.ParseTimestamp(updatedRaw)
		if err != nil {
			errs = append(errs, Violation{
				FieldPath: "metadata.last_updated",
				Code:      CodeTimestampInvalid,
				Message:   err.Error(),
			})
		} else {
			updated, updatedOK = t, true
		}
	}

	if createdOK && updatedOK && updated.Before(created) {
		errs = append(errs, Violation{
			FieldPath: "metadata.last_updated",
			Code:      CodeTimestampOrder,
			Message:   fmt.Sprintf("last_updated %q precedes created_at %q", updatedRaw, createdRaw),
		})
	}

	return errs
}

// requireStringField checks a required non-empty string field inside an
// object. Returns the value (empty when invalid) and any violations.
func requireStringField(obj map[string]any, parent, field string) (string, []Violation) {
	path := parent + "." + field
	raw, present := obj[field]
	if !present {
		return "", []Violation{missing(path)}
	}
	s, ok := raw.(string)
	if !ok {
		return "", []Violation{mismatch(path, "string", raw)}
	}
	if s == "" {
		return "", []Violation{empty(path)}
	}
	return s, nil
}

func missing(path string) Violation {
	return Violation{
		FieldPath: path,
		Code:      CodeMissingField,
		Message:   fmt.Sprintf("required field %q is missing", path),
	}
}

func mismatch(path, want string, got any) Violation {
	return Violation{
		FieldPath: path,
		Code:      CodeTypeMismatch,
		Message:   fmt.Sprintf("expected %s, got %s", want, jsonTypeName(got)),
	}
}

func empty(path string) Violation {
	return Violation{
		FieldPath: path,
		Code:      CodeEmptyField,
		Message:   fmt.Sprintf("required field %q must be non-empty", path),
	}
}

func enumViolation(path, category, value string) Violation {
	return Violation{
		FieldPath: path,
		Code:      CodeEnumViolation,
		Message:   fmt.Sprintf("value %q is not in vocabulary category %q", value, category),
	}
}

// jsonTypeName names a decoded JSON value's type for diagnostics.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
