package intent

import (
	"context"
	"errors"

	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/types"
)

// RegistrySelector matches ids, aliases and titles the way the registry
// does.
type RegistrySelector struct {
	Registry form.Registry
}

func (s RegistrySelector) SelectForm(ctx context.Context, req *Request) (string, error) {
	f, err := s.Registry.Resolve(req.Query)
	if errors.Is(err, types.ErrFormNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return f.ID, nil
}

// FailbackSelector asks each selector in turn until one names a form.
type FailbackSelector struct {
	selectors []Selector
}

func NewFailbackSelector(selectors ...Selector) *FailbackSelector {
	return &FailbackSelector{selectors: selectors}
}

func (s *FailbackSelector) SelectForm(ctx context.Context, req *Request) (string, error) {
	var lastErr error
	for _, selector := range s.selectors {
		id, err := selector.SelectForm(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if id != "" {
			return id, nil
		}
	}
	return "", lastErr
}
