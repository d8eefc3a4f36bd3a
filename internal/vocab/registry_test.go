package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalVocab = `
vocabulary: {
	vulnerabilities: ["communication_breakdown", "interpersonal_conflict"]
	roles: ["tenant", "property_manager"]
	emotional_states: ["anxious", "calm"]
	validation_statuses: ["pending_review", "validated"]
}
`

func TestLoad_Valid(t *testing.T) {
	reg, err := Load([]byte(minimalVocab), "test.cue")
	require.NoError(t, err)

	assert.True(t, reg.Contains(CategoryVulnerabilities, "communication_breakdown"))
	assert.True(t, reg.Contains(CategoryRoles, "tenant"))
	assert.True(t, reg.Contains(CategoryEmotionalStates, "calm"))
	assert.True(t, reg.Contains(CategoryValidationStatuses, "validated"))

	assert.False(t, reg.Contains(CategoryVulnerabilities, "not_in_registry"))
	assert.False(t, reg.Contains(CategoryRoles, "communication_breakdown"), "categories are disjoint")
	assert.False(t, reg.Contains("unknown_category", "tenant"))
}

func TestLoad_AllSorted(t *testing.T) {
	reg, err := Load([]byte(minimalVocab), "test.cue")
	require.NoError(t, err)

	assert.Equal(t, []string{"communication_breakdown", "interpersonal_conflict"},
		reg.All(CategoryVulnerabilities))
	assert.Equal(t, []string{"property_manager", "tenant"}, reg.All(CategoryRoles))

	// Mutating the returned slice must not affect registry state.
	all := reg.All(CategoryRoles)
	all[0] = "mutated"
	assert.Equal(t, []string{"property_manager", "tenant"}, reg.All(CategoryRoles))
}

func TestLoad_MalformedCUE(t *testing.T) {
	_, err := Load([]byte(`vocabulary: { this is not valid cue`), "bad.cue")
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrRegistryParse, loadErr.Code)
}

func TestLoad_MissingVocabularyStruct(t *testing.T) {
	_, err := Load([]byte(`other: {a: 1}`), "bad.cue")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrMissingVocab, loadErr.Code)
}

func TestLoad_MissingCategory(t *testing.T) {
	src := `
vocabulary: {
	vulnerabilities: ["a"]
	roles: ["tenant"]
	emotional_states: ["calm"]
}
`
	_, err := Load([]byte(src), "bad.cue")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrMissingCategory, loadErr.Code)
	assert.Contains(t, loadErr.Message, "validation_statuses")
}

func TestLoad_EmptyCategory(t *testing.T) {
	src := `
vocabulary: {
	vulnerabilities: []
	roles: ["tenant"]
	emotional_states: ["calm"]
	validation_statuses: ["pending_review"]
}
`
	_, err := Load([]byte(src), "bad.cue")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrEmptyCategory, loadErr.Code)
}

func TestLoad_DuplicateValue(t *testing.T) {
	src := `
vocabulary: {
	vulnerabilities: ["a", "a"]
	roles: ["tenant"]
	emotional_states: ["calm"]
	validation_statuses: ["pending_review"]
}
`
	_, err := Load([]byte(src), "bad.cue")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrDuplicateValue, loadErr.Code)
}

func TestLoad_NonStringValue(t *testing.T) {
	src := `
vocabulary: {
	vulnerabilities: ["a", 3]
	roles: ["tenant"]
	emotional_states: ["calm"]
	validation_statuses: ["pending_review"]
}
`
	_, err := Load([]byte(src), "bad.cue")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrInvalidValue, loadErr.Code)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.cue")
	require.NoError(t, os.WriteFile(path, []byte(minimalVocab), 0o644))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, reg.Contains(CategoryRoles, "tenant"))
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrRegistryParse, loadErr.Code)
}

func TestDefault(t *testing.T) {
	reg := Default()

	// The embedded vocabulary must declare all required categories and
	// the statuses the pipeline assigns.
	for _, category := range RequiredCategories {
		assert.NotEmpty(t, reg.All(category), "category %s", category)
	}
	assert.True(t, reg.Contains(CategoryValidationStatuses, "pending_review"))
	assert.True(t, reg.Contains(CategoryValidationStatuses, "validated"))
}

func TestCategories(t *testing.T) {
	reg := Default()
	assert.Equal(t, RequiredCategories, reg.Categories())
}
