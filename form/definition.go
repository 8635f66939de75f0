// Package form loads form catalogs and compiles them into the field chains
// used by the session engine.
package form

import (
	"fmt"

	"github.com/tbxark/formpilot/normalize"
	"github.com/tbxark/formpilot/patch"
	"github.com/tbxark/formpilot/types"
	"github.com/tbxark/formpilot/validate"
)

// Definition is a form as written in a catalog file.
type Definition struct {
	ID      string                  `json:"form_id" yaml:"form_id" validate:"required"`
	Title   string                  `json:"title" yaml:"title"`
	Aliases []string                `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Fields  []types.FieldDefinition `json:"fields" yaml:"fields" validate:"dive"`
	Extends string                  `json:"extends,omitempty" yaml:"extends,omitempty"`
	Patch   []patch.Operation       `json:"patch,omitempty" yaml:"patch,omitempty" validate:"dive"`
}

// overlayPaths are the pointers an overlay may touch.
var overlayPaths = patch.PointerPaths[Definition]("form_id", "extends", "patch")

// Field is a field definition with its compiled chains.
type Field struct {
	types.FieldDefinition
	Normalizers normalize.Chain
	Validators  *validate.Chain
}

// Form is the compiled, read-only form shared by every session.
type Form struct {
	ID      string
	Title   string
	Aliases []string
	Fields  []Field
}

type Summary struct {
	ID      string   `json:"form_id"`
	Title   string   `json:"title"`
	Aliases []string `json:"aliases,omitempty"`
	Fields  int      `json:"fields"`
}

// ConfigError reports a catalog entry that cannot be compiled.
type ConfigError struct {
	Form  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("form %q: %v", e.Form, e.Err)
	}
	return fmt.Sprintf("form %q field %q: %v", e.Form, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Compile builds the normalizer and validator chains of every field.
func Compile(def Definition, opts ...validate.ChainOption) (*Form, error) {
	out := &Form{
		ID:      def.ID,
		Title:   def.Title,
		Aliases: append([]string(nil), def.Aliases...),
		Fields:  make([]Field, 0, len(def.Fields)),
	}
	seen := make(map[string]bool, len(def.Fields))
	for _, fd := range def.Fields {
		if fd.Name == "" {
			return nil, &ConfigError{Form: def.ID, Err: fmt.Errorf("field without name")}
		}
		if seen[fd.Name] {
			return nil, &ConfigError{Form: def.ID, Field: fd.Name, Err: fmt.Errorf("duplicate field name")}
		}
		seen[fd.Name] = true

		norm, err := normalize.Compile(fd.Normalizers)
		if err != nil {
			return nil, &ConfigError{Form: def.ID, Field: fd.Name, Err: err}
		}
		chain, err := validate.ForField(fd, opts...)
		if err != nil {
			return nil, &ConfigError{Form: def.ID, Field: fd.Name, Err: err}
		}
		out.Fields = append(out.Fields, Field{FieldDefinition: fd, Normalizers: norm, Validators: chain})
	}
	return out, nil
}

// Definitions returns the plain field definitions in order.
func (f *Form) Definitions() []types.FieldDefinition {
	defs := make([]types.FieldDefinition, len(f.Fields))
	for i, field := range f.Fields {
		defs[i] = field.FieldDefinition
	}
	return defs
}

func (f *Form) Summary() Summary {
	return Summary{ID: f.ID, Title: f.Title, Aliases: f.Aliases, Fields: len(f.Fields)}
}
