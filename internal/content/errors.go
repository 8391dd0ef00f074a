package content

import "strings"

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + " " + e.Message
}

// ValidationError collects every problem found in a form.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, problem := range e.Problems {
		parts = append(parts, problem.String())
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// ErrorKind classifies the error for callers that print validation failures
// without their wrapping context.
func (e *ValidationError) ErrorKind() string {
	return "validation"
}

// Field returns the first problem reported for field, if any.
func (e *ValidationError) Field(field string) (FieldError, bool) {
	for _, problem := range e.Problems {
		if problem.Field == field {
			return problem, true
		}
	}
	return FieldError{}, false
}
