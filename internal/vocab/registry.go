package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Registry load error codes (R100-R109).
const (
	ErrRegistryParse   = "R100" // CUE source malformed
	ErrMissingVocab    = "R101" // top-level vocabulary struct missing
	ErrMissingCategory = "R102" // required category absent
	ErrEmptyCategory   = "R103" // category declared but empty
	ErrInvalidValue    = "R104" // non-string or blank value
	ErrDuplicateValue  = "R105" // value repeated within a category
)

// Category names. The four categories are disjoint closed sets; every one
// must be present and non-empty in the registry source.
const (
	CategoryVulnerabilities    = "vulnerabilities"
	CategoryRoles              = "roles"
	CategoryEmotionalStates    = "emotional_states"
	CategoryValidationStatuses = "validation_statuses"
)

// RequiredCategories lists every category a registry source must declare.
var RequiredCategories = []string{
	CategoryVulnerabilities,
	CategoryRoles,
	CategoryEmotionalStates,
	CategoryValidationStatuses,
}

// LoadError represents a fatal registry load failure.
type LoadError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Registry is the process-wide set of allowed enum values, immutable once
// loaded. Safe for unsynchronized concurrent reads; Load itself is not
// concurrency-safe and must complete before any consumer is constructed.
type Registry struct {
	categories map[string]map[string]bool
	sorted     map[string][]string
}

//go:embed vocabulary.cue
var defaultVocabularyCUE []byte

// Load parses a CUE vocabulary source into a Registry.
// The source must declare a top-level "vocabulary" struct with all four
// required categories, each a non-empty list of distinct non-blank strings.
func Load(data []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, &LoadError{
			Code:    ErrRegistryParse,
			Message: fmt.Sprintf("parsing vocabulary source: %v", err),
		}
	}

	vocabVal := value.LookupPath(cue.ParsePath("vocabulary"))
	if !vocabVal.Exists() {
		return nil, &LoadError{
			Code:    ErrMissingVocab,
			Message: "vocabulary struct not found in source",
		}
	}

	reg := &Registry{
		categories: make(map[string]map[string]bool, len(RequiredCategories)),
		sorted:     make(map[string][]string, len(RequiredCategories)),
	}

	for _, category := range RequiredCategories {
		values, err := loadCategory(vocabVal, category)
		if err != nil {
			return nil, err
		}

		set := make(map[string]bool, len(values))
		for _, v := range values {
			if set[v] {
				return nil, &LoadError{
					Code:    ErrDuplicateValue,
					Message: fmt.Sprintf("duplicate value %q in category %q", v, category),
				}
			}
			set[v] = true
		}

		slices.Sort(values)
		reg.categories[category] = set
		reg.sorted[category] = values
	}

	return reg, nil
}

// LoadFile reads and parses a CUE vocabulary file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			Code:    ErrRegistryParse,
			Message: fmt.Sprintf("reading vocabulary file: %v", err),
		}
	}
	return Load(data, path)
}

// Default returns the registry built from the embedded vocabulary source.
// Panics if the embedded source is invalid, which indicates a build bug.
func Default() *Registry {
	reg, err := Load(defaultVocabularyCUE, "vocabulary.cue")
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return reg
}

// loadCategory extracts one category list from the vocabulary struct.
func loadCategory(vocabVal cue.Value, category string) ([]string, error) {
	catVal := vocabVal.LookupPath(cue.ParsePath(category))
	if !catVal.Exists() {
		return nil, &LoadError{
			Code:    ErrMissingCategory,
			Message: fmt.Sprintf("required category %q not found", category),
		}
	}

	iter, err := catVal.List()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrInvalidValue,
			Message: fmt.Sprintf("category %q is not a list: %v", category, err),
		}
	}

	var values []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &LoadError{
				Code:    ErrInvalidValue,
				Message: fmt.Sprintf("category %q contains a non-string value: %v", category, err),
			}
		}
		if s == "" {
			return nil, &LoadError{
				Code:    ErrInvalidValue,
				Message: fmt.Sprintf("category %q contains a blank value", category),
			}
		}
		values = append(values, s)
	}

	if len(values) == 0 {
		return nil, &LoadError{
			Code:    ErrEmptyCategory,
			Message: fmt.Sprintf("category %q is empty", category),
		}
	}

	return values, nil
}

// Contains reports whether value is a member of category.
// Unknown categories contain nothing.
func (r *Registry) Contains(category, value string) bool {
	return r.categories[category][value]
}

// All returns the sorted values of a category. The returned slice is a
// copy; callers may not mutate registry state through it.
func (r *Registry) All(category string) []string {
	return slices.Clone(r.sorted[category])
}

// Categories returns the registry's category names in declaration order.
func (r *Registry) Categories() []string {
	return slices.Clone(RequiredCategories)
}
