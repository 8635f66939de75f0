package engine

import (
	"fmt"
	"strings"

	"github.com/tbxark/formpilot/dialogue"
	"github.com/tbxark/formpilot/types"
)

// CompletionMessage is returned once every field is resolved.
const CompletionMessage = "Đã đủ thông tin. Bác có thể xem trước."

// Prompt describes the field the session is waiting on.
type Prompt struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Ask      string `json:"ask"`
	Reprompt string `json:"reprompt"`
	Example  string `json:"example,omitempty"`
	Required bool   `json:"required"`
}

// Result is the caller-facing view of a session after an operation.
// Error holds a validation reason; it is a normal outcome, not a failure.
type Result struct {
	SessionID    string      `json:"session_id"`
	FormID       string      `json:"form_id"`
	FormTitle    string      `json:"form_title,omitempty"`
	Stage        types.Stage `json:"stage"`
	FieldIndex   int         `json:"field_index"`
	TotalFields  int         `json:"total_fields"`
	Progress     float64     `json:"progress"`
	Prompt       *Prompt     `json:"prompt,omitempty"`
	PendingValue string      `json:"pending_value,omitempty"`
	Message      string      `json:"message,omitempty"`
	Error        string      `json:"error,omitempty"`
	Hint         string      `json:"hint,omitempty"`
	Skipped      bool        `json:"skipped,omitempty"`
	Done         bool        `json:"done"`
}

// PreviewResult is the summary of a completed session.
type PreviewResult struct {
	SessionID string             `json:"session_id"`
	FormID    string             `json:"form_id"`
	FormTitle string             `json:"form_title"`
	Rows      []types.PreviewRow `json:"preview"`
	Prose     string             `json:"prose"`
	Answers   map[string]string  `json:"answers"`
}

// IncompleteError reports required fields still missing an answer.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return "Còn thiếu: " + strings.Join(e.Missing, ", ")
}

func newPrompt(field types.FieldDefinition, q dialogue.Question) *Prompt {
	return &Prompt{
		Field:    field.Name,
		Label:    field.DisplayLabel(),
		Ask:      q.Ask,
		Reprompt: q.Reprompt,
		Example:  q.Example,
		Required: field.IsRequired(),
	}
}

// Text renders the result as the next thing to say to the user.
func (r *Result) Text() string {
	var sb strings.Builder
	switch {
	case r.Done:
		sb.WriteString(r.Message)
	case r.Stage == types.StageConfirm:
		sb.WriteString(r.Message)
		if r.Hint != "" {
			fmt.Fprintf(&sb, "\n(%s)", r.Hint)
		}
	case r.Error != "":
		sb.WriteString(r.Error)
		if r.Prompt != nil {
			sb.WriteString(" ")
			sb.WriteString(r.Prompt.Reprompt)
		}
	case r.Prompt != nil:
		sb.WriteString(r.Prompt.Ask)
	}
	if !r.Done && r.Stage == types.StageAsk && r.Prompt != nil && r.Prompt.Example != "" {
		fmt.Fprintf(&sb, "\nVí dụ: %s", r.Prompt.Example)
	}
	return sb.String()
}
