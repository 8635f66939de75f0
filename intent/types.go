// Package intent works out which form a free-text request is about.
package intent

import (
	"context"

	"github.com/tbxark/formpilot/form"
)

type Request struct {
	Query string
	Forms []form.Summary
}

// Selector returns the id of the requested form, or "" when the request
// matches none of the offered forms.
type Selector interface {
	SelectForm(ctx context.Context, req *Request) (string, error)
}
