package validate

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Stage identifies the validation pass that produced an Error.
type Stage string

const (
	// StageStructural covers shape and type checks on the raw input tree.
	StageStructural Stage = "structural"
	// StageSemantic covers rules checked on each resolved record.
	StageSemantic Stage = "semantic"
)

// Error reports every violation found by one validation pass.
type Error struct {
	Stage  Stage
	Errors field.ErrorList
}

// NewError returns nil when errs is empty.
func NewError(stage Stage, errs field.ErrorList) error {
	if len(errs) == 0 {
		return nil
	}
	return &Error{Stage: stage, Errors: errs}
}

func (e *Error) Error() string {
	var sb strings.Builder
	if len(e.Errors) == 1 {
		sb.WriteString(fmt.Sprintf("%s validation failed: ", e.Stage))
		sb.WriteString(e.Errors[0].Error())
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%s validation failed with %d errors:", e.Stage, len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual field errors to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}
