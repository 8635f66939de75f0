package engine

import (
	"strings"

	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/types"
)

// RequiredReason is shown when a required field gets an empty answer.
const RequiredReason = "Bác vui lòng cho cháu xin thông tin này ạ."

// evaluation is the outcome of checking raw input against one field.
type evaluation struct {
	value  string
	skip   bool
	reason string
}

// evaluate normalizes and validates raw for field. Empty input skips an
// optional field and fails a required one.
func evaluate(field form.Field, raw string) evaluation {
	if strings.TrimSpace(raw) == "" {
		if field.IsRequired() {
			return evaluation{reason: RequiredReason}
		}
		return evaluation{skip: true}
	}
	value := field.Normalizers.Apply(raw)
	if ok, reason := field.Validators.Check(value); !ok {
		return evaluation{value: value, reason: reason}
	}
	return evaluation{value: value}
}

// The transitions below mutate a private copy handed out by the store.

func skip(s *types.Session, total int) {
	advance(s, total)
}

func commit(s *types.Session, name, value string, total int) {
	s.Answers[name] = value
	advance(s, total)
}

func hold(s *types.Session, value string) {
	v := value
	s.PendingValue = &v
	s.Stage = types.StageConfirm
}

// accept commits the pending value of the current field.
func accept(s *types.Session, name string, total int) {
	value := *s.PendingValue
	s.PendingValue = nil
	commit(s, name, value, total)
}

// reject drops the pending value and asks the same field again.
func reject(s *types.Session) {
	s.PendingValue = nil
	s.Stage = types.StageAsk
}

func advance(s *types.Session, total int) {
	s.FieldIndex++
	s.PendingValue = nil
	if s.FieldIndex >= total {
		s.FieldIndex = total
		s.Stage = types.StageDone
		return
	}
	s.Stage = types.StageAsk
}

// missingRequired lists the labels of required fields without an answer.
func missingRequired(f *form.Form, answers map[string]string) []string {
	var missing []string
	for _, field := range f.Fields {
		if _, ok := answers[field.Name]; field.IsRequired() && !ok {
			missing = append(missing, field.DisplayLabel())
		}
	}
	return missing
}
