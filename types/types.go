package types

type Stage string

const (
	StageAsk     Stage = "ask"
	StageConfirm Stage = "confirm"
	StageDone    Stage = "done"
)

func (s Stage) Valid() bool {
	switch s {
	case StageAsk, StageConfirm, StageDone:
		return true
	default:
		return false
	}
}

type FieldType string

const (
	FieldString  FieldType = "string"
	FieldDate    FieldType = "date"
	FieldEmail   FieldType = "email"
	FieldPhone   FieldType = "phone"
	FieldNumeric FieldType = "numeric"
)

// ValidatorSpec is the catalog form of a validator. Min and Max carry
// kind-specific values: integers for length, numbers for numeric_range and
// ISO dates or "today" for date_range.
type ValidatorSpec struct {
	Kind    string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min     any    `json:"min,omitempty" yaml:"min,omitempty"`
	Max     any    `json:"max,omitempty" yaml:"max,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// KindName returns Kind, falling back to the legacy "type" key.
func (v ValidatorSpec) KindName() string {
	if v.Kind != "" {
		return v.Kind
	}
	return v.Type
}

type FieldDefinition struct {
	Name        string          `json:"name" yaml:"name" validate:"required"`
	Label       string          `json:"label" yaml:"label"`
	Type        FieldType       `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=string date email phone numeric"`
	Required    *bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Pattern     string          `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Normalizers []string        `json:"normalizers,omitempty" yaml:"normalizers,omitempty"`
	Validators  []ValidatorSpec `json:"validators,omitempty" yaml:"validators,omitempty"`
	Example     string          `json:"example,omitempty" yaml:"example,omitempty"`
}

// IsRequired reports whether the field must be answered. Catalog entries
// without an explicit flag are required.
func (f FieldDefinition) IsRequired() bool {
	if f.Required == nil {
		return true
	}
	return *f.Required
}

// DisplayLabel returns the label, or the name when no label was given.
func (f FieldDefinition) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func Bool(b bool) *bool {
	return &b
}

type PreviewRow struct {
	Label string `json:"label" jsonschema:"required,description=Original field label"`
	Value string `json:"value" jsonschema:"required,description=Answer given for the field"`
}
