// Package dialogue words the questions asked for each field and the
// summary shown once a form is complete.
package dialogue

import (
	"context"

	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/types"
)

// Question is the wording used for one field.
type Question struct {
	Name     string `json:"name" jsonschema:"required,description=Field name copied from the form metadata"`
	Ask      string `json:"ask" jsonschema:"required,description=Short polite question asking for the field"`
	Reprompt string `json:"reprompt" jsonschema:"required,description=Encouraging question used when the answer was not accepted"`
	Example  string `json:"example,omitempty" jsonschema:"description=Short example answer without the 'Ví dụ:' prefix"`
}

// Generator returns one question per field, in field order.
type Generator interface {
	Questions(ctx context.Context, f *form.Form) ([]Question, error)
}

type Preview struct {
	Rows  []types.PreviewRow `json:"preview" jsonschema:"required,description=Label and value pairs in form field order"`
	Prose string             `json:"prose" jsonschema:"required,description=Short formal paragraph summarising the answers"`
}

type Previewer interface {
	Preview(ctx context.Context, f *form.Form, answers map[string]string) (*Preview, error)
}
