// Package grader flags answers that pass validation but look implausible
// enough to ask the user for an explicit confirmation.
package grader

import (
	"context"
	"fmt"

	"github.com/tbxark/formpilot/types"
)

type Request struct {
	FormID string
	Field  types.FieldDefinition
	Value  string
}

type Verdict struct {
	Suspicious bool
	Message    string
	Hint       string
}

type Grader interface {
	Grade(ctx context.Context, req *Request) (*Verdict, error)
}

// DefaultConfirmation is the question asked when a grader gives none.
func DefaultConfirmation(value string) string {
	return fmt.Sprintf("Bác chắc chắn là '%s' chứ?", value)
}
