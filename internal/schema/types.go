package schema

// Validation status values a record moves through during curation.
// StatusValidated is assigned only by the merge engine after a record
// passes every check.
const (
	StatusPendingReview = "pending_review"
	StatusValidated     = "validated"
)

// NeutralEmotionalState is a universal sentinel: always a valid
// emotional_state, even when the loaded vocabulary does not declare it.
const NeutralEmotionalState = "neutral"

// ScenarioRecord is one complete housing-interaction training example.
// Field names are the wire contract and must not be renamed without a
// version bump.
type ScenarioRecord struct {
	ScenarioID      string           `json:"scenario_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Vulnerabilities []string         `json:"vulnerabilities"`
	Scenario        string           `json:"scenario"`
	Messages        []Message        `json:"messages"`
	Responses       []map[string]any `json:"responses"`
	Metadata        Metadata         `json:"metadata"`
}

// Message is a single dialogue turn. Order within ScenarioRecord.Messages
// is chronological and semantically meaningful.
type Message struct {
	Role           string `json:"role"`
	Content        string `json:"content"`
	EmotionalState string `json:"emotional_state"`
}

// Metadata carries curation bookkeeping for a record.
type Metadata struct {
	CreatedAt        string `json:"created_at"`
	LastUpdated      string `json:"last_updated"`
	ValidationStatus string `json:"validation_status"`
}

// ToMap converts a typed record into the loosely-typed plane the validator
// and merge engine operate on. The result shares no memory with the record.
func (r ScenarioRecord) ToMap() map[string]any {
	vulns := make([]any, len(r.Vulnerabilities))
	for i, v := range r.Vulnerabilities {
		vulns[i] = v
	}

	messages := make([]any, len(r.Messages))
	for i, m := range r.Messages {
		messages[i] = map[string]any{
			"role":            m.Role,
			"content":         m.Content,
			"emotional_state": m.EmotionalState,
		}
	}

	responses := make([]any, len(r.Responses))
	for i, resp := range r.Responses {
		responses[i] = CopyValue(resp)
	}

	return map[string]any{
		"scenario_id":     r.ScenarioID,
		"title":           r.Title,
		"description":     r.Description,
		"vulnerabilities": vulns,
		"scenario":        r.Scenario,
		"messages":        messages,
		"responses":       responses,
		"metadata": map[string]any{
			"created_at":        r.Metadata.CreatedAt,
			"last_updated":      r.Metadata.LastUpdated,
			"validation_status": r.Metadata.ValidationStatus,
		},
	}
}

// CopyValue deep-copies a JSON-decoded value tree. Maps and slices are
// duplicated; scalars are returned as-is.
func CopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = CopyValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = CopyValue(elem)
		}
		return out
	default:
		return val
	}
}

// CopyRecord deep-copies a loosely-typed record.
func CopyRecord(rec map[string]any) map[string]any {
	return CopyValue(rec).(map[string]any)
}
