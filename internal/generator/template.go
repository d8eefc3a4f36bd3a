package generator

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Template selects which vulnerability categories and role pairing a
// generated scenario instantiates, and patterns its dialogue turns.
type Template struct {
	// Name uniquely identifies this template.
	Name string `yaml:"name"`

	// Title and Description seed the corresponding record fields.
	Title       string `yaml:"title"`
	Description string `yaml:"description"`

	// Scenario is the narrative framing for the generated record.
	Scenario string `yaml:"scenario"`

	// Vulnerabilities lists the vocabulary values the record is annotated
	// with. Values must be registry-known or generation self-check fails.
	Vulnerabilities []string `yaml:"vulnerabilities"`

	// Turns is the dialogue turn specification, in order.
	Turns []TurnSpec `yaml:"turns"`

	// ResponseApproaches name the staff response variants to draw, one
	// response object per approach (e.g. "professional", "empathetic").
	ResponseApproaches []string `yaml:"response_approaches,omitempty"`

	// ResponseRole is the role whose fragments staff responses draw from.
	// Defaults to the role of the last staff-side turn when empty.
	ResponseRole string `yaml:"response_role,omitempty"`
}

// TurnSpec patterns a single dialogue turn.
type TurnSpec struct {
	Role           string `yaml:"role"`
	EmotionalState string `yaml:"emotional_state"`
	Intent         string `yaml:"intent"`
}

// templateFile is the on-disk shape of a template collection.
type templateFile struct {
	Templates []Template `yaml:"templates"`
}

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// LoadTemplates reads and parses a template collection YAML file.
// Unknown fields are rejected to catch typos early.
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return parseTemplates(data)
}

// DefaultTemplates returns the embedded template collection.
// Panics if the embedded collection is invalid, which indicates a build bug.
func DefaultTemplates() []Template {
	tmpls, err := parseTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded templates are invalid: %v", err))
	}
	return tmpls
}

// FindTemplate returns the named template from a collection.
func FindTemplate(tmpls []Template, name string) (Template, error) {
	for _, t := range tmpls {
		if t.Name == name {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("template %q not found", name)
}

func parseTemplates(data []byte) ([]Template, error) {
	var file templateFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse templates YAML: %w", err)
	}

	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("invalid templates: templates list is empty")
	}
	seen := make(map[string]bool, len(file.Templates))
	for i, t := range file.Templates {
		if err := validateTemplate(i, t); err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("invalid templates: duplicate template name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return file.Templates, nil
}

func validateTemplate(index int, t Template) error {
	if t.Name == "" {
		return fmt.Errorf("invalid templates: templates[%d]: name is required", index)
	}
	if t.Title == "" {
		return fmt.Errorf("invalid templates: templates[%d]: title is required", index)
	}
	if t.Description == "" {
		return fmt.Errorf("invalid templates: templates[%d]: description is required", index)
	}
	if t.Scenario == "" {
		return fmt.Errorf("invalid templates: templates[%d]: scenario is required", index)
	}
	if len(t.Vulnerabilities) == 0 {
		return fmt.Errorf("invalid templates: templates[%d]: vulnerabilities list is required and must be non-empty", index)
	}
	if len(t.Turns) == 0 {
		return fmt.Errorf("invalid templates: templates[%d]: turns list is required and must be non-empty", index)
	}
	for j, turn := range t.Turns {
		if turn.Role == "" {
			return fmt.Errorf("invalid templates: templates[%d].turns[%d]: role is required", index, j)
		}
		if turn.EmotionalState == "" {
			return fmt.Errorf("invalid templates: templates[%d].turns[%d]: emotional_state is required", index, j)
		}
		if turn.Intent == "" {
			return fmt.Errorf("invalid templates: templates[%d].turns[%d]: intent is required", index, j)
		}
	}
	return nil
}
