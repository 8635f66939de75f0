package types

import (
	"fmt"
	"maps"
	"time"
)

// Session is the persisted progress of one user through one form.
type Session struct {
	FormID       string            `json:"form_id"`
	FieldIndex   int               `json:"field_index"`
	Answers      map[string]string `json:"answers"`
	Stage        Stage             `json:"stage"`
	PendingValue *string           `json:"pending_value,omitempty"`

	Preview   []PreviewRow `json:"preview,omitempty"`
	Prose     string       `json:"prose,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewSession(formID string, now time.Time) *Session {
	return &Session{
		FormID:     formID,
		FieldIndex: 0,
		Answers:    map[string]string{},
		Stage:      StageAsk,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Answers = maps.Clone(s.Answers)
	if out.Answers == nil {
		out.Answers = map[string]string{}
	}
	if s.PendingValue != nil {
		v := *s.PendingValue
		out.PendingValue = &v
	}
	if s.Preview != nil {
		out.Preview = append([]PreviewRow(nil), s.Preview...)
	}
	return &out
}

// Validate checks the invariants that hold regardless of the form.
func (s *Session) Validate() error {
	if s.FormID == "" {
		return fmt.Errorf("session has no form id")
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("invalid stage %q", s.Stage)
	}
	if s.FieldIndex < 0 {
		return fmt.Errorf("negative field index %d", s.FieldIndex)
	}
	if (s.PendingValue != nil) != (s.Stage == StageConfirm) {
		return fmt.Errorf("pending value must be set only in %s stage (stage=%s)", StageConfirm, s.Stage)
	}
	return nil
}

// Check verifies the session against the field list of its form.
func (s *Session) Check(fields []FieldDefinition) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.FieldIndex > len(fields) {
		return fmt.Errorf("field index %d beyond %d fields", s.FieldIndex, len(fields))
	}
	if s.Stage != StageDone && s.FieldIndex == len(fields) {
		return fmt.Errorf("stage %s with every field resolved", s.Stage)
	}
	if s.Stage == StageDone {
		if s.FieldIndex != len(fields) {
			return fmt.Errorf("done at field index %d of %d", s.FieldIndex, len(fields))
		}
		for _, f := range fields {
			if _, ok := s.Answers[f.Name]; f.IsRequired() && !ok {
				return fmt.Errorf("done without required field %q", f.Name)
			}
		}
	}
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.Name] = struct{}{}
	}
	for name := range s.Answers {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("answer for unknown field %q", name)
		}
	}
	return nil
}

// Progress is the share of resolved fields. An empty form is complete.
func Progress(index, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(index) / float64(total)
}
