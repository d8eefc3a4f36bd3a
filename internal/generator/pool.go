package generator

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Microresponse is a reusable text fragment keyed by role, emotional state,
// and intent. The generator composes dialogue by drawing fragments matching
// a template's turn specification.
type Microresponse struct {
	Role           string `yaml:"role"`
	EmotionalState string `yaml:"emotional_state"`
	Intent         string `yaml:"intent"`
	Text           string `yaml:"text"`
}

// Pool holds the building-block fragments available to a generation session.
// Fragment order is file order and is part of the deterministic contract:
// the same pool file always yields the same candidate ordering.
type Pool struct {
	Responses []Microresponse `yaml:"microresponses"`
}

//go:embed pool.yaml
var defaultPoolYAML []byte

// LoadPool reads and parses a microresponse pool YAML file.
// Unknown fields are rejected to catch typos early.
func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool file: %w", err)
	}
	return parsePool(data)
}

// DefaultPool returns the embedded microresponse pool.
// Panics if the embedded pool is invalid, which indicates a build bug.
func DefaultPool() *Pool {
	pool, err := parsePool(defaultPoolYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded pool is invalid: %v", err))
	}
	return pool
}

func parsePool(data []byte) (*Pool, error) {
	var pool Pool
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&pool); err != nil {
		return nil, fmt.Errorf("failed to parse pool YAML: %w", err)
	}

	if len(pool.Responses) == 0 {
		return nil, fmt.Errorf("invalid pool: microresponses list is empty")
	}
	for i, mr := range pool.Responses {
		if mr.Role == "" {
			return nil, fmt.Errorf("invalid pool: microresponses[%d]: role is required", i)
		}
		if mr.EmotionalState == "" {
			return nil, fmt.Errorf("invalid pool: microresponses[%d]: emotional_state is required", i)
		}
		if mr.Intent == "" {
			return nil, fmt.Errorf("invalid pool: microresponses[%d]: intent is required", i)
		}
		if mr.Text == "" {
			return nil, fmt.Errorf("invalid pool: microresponses[%d]: text is required", i)
		}
	}
	return &pool, nil
}

// Filter returns the fragments matching role, emotional state, and intent,
// in pool order. An empty emotional state on the query matches any state.
func (p *Pool) Filter(role, emotionalState, intent string) []Microresponse {
	var out []Microresponse
	for _, mr := range p.Responses {
		if mr.Role != role || mr.Intent != intent {
			continue
		}
		if emotionalState != "" && mr.EmotionalState != emotionalState {
			continue
		}
		out = append(out, mr)
	}
	return out
}
