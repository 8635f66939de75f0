package form

import (
	"fmt"
	"strings"

	"github.com/tbxark/formpilot/types"
	"golang.org/x/text/unicode/norm"
)

type Registry interface {
	Get(formID string) (*Form, error)
	List() []Summary
	// Resolve picks a form from free text: exact id, then an alias contained
	// in the text, then a title contained in the text.
	Resolve(query string) (*Form, error)
}

// MemoryRegistry holds compiled forms in catalog order.
type MemoryRegistry struct {
	order []*Form
	byID  map[string]*Form
}

var _ Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry(forms ...*Form) *MemoryRegistry {
	r := &MemoryRegistry{byID: make(map[string]*Form, len(forms))}
	for _, f := range forms {
		r.order = append(r.order, f)
		r.byID[f.ID] = f
	}
	return r
}

func (r *MemoryRegistry) Get(formID string) (*Form, error) {
	if f, ok := r.byID[formID]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrFormNotFound, formID)
}

func (r *MemoryRegistry) List() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, f := range r.order {
		out = append(out, f.Summary())
	}
	return out
}

func (r *MemoryRegistry) Resolve(query string) (*Form, error) {
	q := fold(query)
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", types.ErrFormNotFound)
	}
	for _, f := range r.order {
		if fold(f.ID) == q {
			return f, nil
		}
	}
	for _, f := range r.order {
		for _, alias := range f.Aliases {
			if a := fold(alias); a != "" && strings.Contains(q, a) {
				return f, nil
			}
		}
	}
	for _, f := range r.order {
		if t := fold(f.Title); t != "" && strings.Contains(q, t) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", types.ErrFormNotFound, query)
}

func fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
