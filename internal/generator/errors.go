package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/willowtree-housing/willow/internal/validator"
)

// InvariantError signals that the generator produced, or was about to
// produce, a self-inconsistent record. This is a bug signal in template or
// pool data, never a normal user input error, and must not be silently
// swallowed.
type InvariantError struct {
	// Template names the template being instantiated.
	Template string

	// Message is a human-readable description.
	Message string

	// Violations carries the self-check findings, when the failure came
	// from the post-generation validation gate.
	Violations []validator.Violation
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("generation invariant violated (template=%s): %s", e.Template, e.Message)
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("generation invariant violated (template=%s): %s: %s",
		e.Template, e.Message, strings.Join(parts, "; "))
}

// IsInvariantError reports whether err is a generation invariant failure.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
