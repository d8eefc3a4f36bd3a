// Package generator produces synthetic scenario records from templates and
// a microresponse pool.
//
// Generation is deterministic: the same seed, template, pool, and clock
// always yield a byte-identical record under canonical serialization. Every
// returned record is guaranteed to pass the validator; a failed self-check
// surfaces as *InvariantError rather than an invalid record.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/willowtree-housing/willow/internal/schema"
	"github.com/willowtree-housing/willow/internal/validator"
	"github.com/willowtree-housing/willow/internal/vocab"
)

// Generator owns a single generation session: the registry used for
// self-checks and the session-scoped ID collision set. Not safe for
// concurrent use without external synchronization.
type Generator struct {
	reg  *vocab.Registry
	now  func() time.Time
	seen map[string]bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the wall clock used for metadata timestamps.
// Tests use a fixed clock for byte-identical output.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a generation session bound to a loaded registry.
func New(reg *vocab.Registry, opts ...Option) *Generator {
	g := &Generator{
		reg:  reg,
		now:  time.Now,
		seen: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate instantiates a template against the pool with a seeded RNG and
// returns a fully valid scenario record.
//
// Post-conditions (enforced by self-check before returning):
//   - the record passes validator.Validate with zero violations
//   - scenario_id does not collide with any ID from this session
//   - validation_status is pending_review, created_at == last_updated
func (g *Generator) Generate(tmpl Template, pool *Pool, seed int64) (schema.ScenarioRecord, error) {
	rng := rand.New(rand.NewSource(seed))

	messages, err := g.composeMessages(tmpl, pool, rng)
	if err != nil {
		return schema.ScenarioRecord{}, err
	}

	responses, err := g.composeResponses(tmpl, pool, rng)
	if err != nil {
		return schema.ScenarioRecord{}, err
	}

	now := schema.FormatTimestamp(g.now())
	rec := schema.ScenarioRecord{
		Title:           tmpl.Title,
		Description:     tmpl.Description,
		Vulnerabilities: append([]string(nil), tmpl.Vulnerabilities...),
		Scenario:        tmpl.Scenario,
		Messages:        messages,
		Responses:       responses,
		Metadata: schema.Metadata{
			CreatedAt:        now,
			LastUpdated:      now,
			ValidationStatus: schema.StatusPendingReview,
		},
	}

	id, err := g.assignID(tmpl, rec, seed)
	if err != nil {
		return schema.ScenarioRecord{}, err
	}
	rec.ScenarioID = id

	// Hard post-condition: the record must validate cleanly. A failure here
	// means the template or pool data is inconsistent with the registry.
	if result := validator.Validate(rec.ToMap(), g.reg); !result.Valid {
		return schema.ScenarioRecord{}, &InvariantError{
			Template:   tmpl.Name,
			Message:    "generated record failed self-check",
			Violations: result.Violations,
		}
	}

	g.seen[id] = true
	return rec, nil
}

// composeMessages draws one fragment per template turn.
func (g *Generator) composeMessages(tmpl Template, pool *Pool, rng *rand.Rand) ([]schema.Message, error) {
	messages := make([]schema.Message, 0, len(tmpl.Turns))
	for i, turn := range tmpl.Turns {
		candidates := pool.Filter(turn.Role, turn.EmotionalState, turn.Intent)
		if len(candidates) == 0 {
			return nil, &InvariantError{
				Template: tmpl.Name,
				Message: fmt.Sprintf("turns[%d]: no pool fragment for role=%q emotional_state=%q intent=%q",
					i, turn.Role, turn.EmotionalState, turn.Intent),
			}
		}
		pick := candidates[rng.Intn(len(candidates))]
		messages = append(messages, schema.Message{
			Role:           turn.Role,
			Content:        pick.Text,
			EmotionalState: turn.EmotionalState,
		})
	}
	return messages, nil
}

// composeResponses draws one response object per configured approach.
// Response fragments use intent "response_<approach>" in the pool.
func (g *Generator) composeResponses(tmpl Template, pool *Pool, rng *rand.Rand) ([]map[string]any, error) {
	responses := make([]map[string]any, 0, len(tmpl.ResponseApproaches))
	role := tmpl.ResponseRole
	if role == "" && len(tmpl.Turns) > 0 {
		role = tmpl.Turns[len(tmpl.Turns)-1].Role
	}

	for _, approach := range tmpl.ResponseApproaches {
		intent := "response_" + approach
		candidates := pool.Filter(role, "", intent)
		if len(candidates) == 0 {
			return nil, &InvariantError{
				Template: tmpl.Name,
				Message:  fmt.Sprintf("no pool fragment for role=%q intent=%q", role, intent),
			}
		}
		pick := candidates[rng.Intn(len(candidates))]
		responses = append(responses, map[string]any{
			"approach": approach,
			"text":     pick.Text,
		})
	}
	return responses, nil
}

// assignID derives a fresh scenario_id from the record content. The hash
// excludes metadata, so identical template, pool, and seed reproduce the
// same ID regardless of when generation ran, while the session collision
// set guarantees uniqueness within a run even for identical content (a
// nonce is folded in on collision).
func (g *Generator) assignID(tmpl Template, rec schema.ScenarioRecord, seed int64) (string, error) {
	content := rec.ToMap()
	delete(content, "scenario_id")
	delete(content, "metadata")
	content["seed"] = seed

	for nonce := int64(0); ; nonce++ {
		if nonce > 0 {
			content["nonce"] = nonce
		}
		hash, err := schema.ScenarioHash(content)
		if err != nil {
			return "", &InvariantError{
				Template: tmpl.Name,
				Message:  fmt.Sprintf("hashing record content: %v", err),
			}
		}
		id := "scn-" + hash[:24]
		if !g.seen[id] {
			return id, nil
		}
	}
}
