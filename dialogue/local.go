package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const optionalNote = " (không bắt buộc, bác có thể bỏ qua)."

// LocalGenerator words questions from the field labels alone.
type LocalGenerator struct{}

func (LocalGenerator) Questions(ctx context.Context, f *form.Form) ([]Question, error) {
	questions := make([]Question, len(f.Fields))
	for i, field := range f.Fields {
		questions[i] = FallbackQuestion(field.FieldDefinition)
	}
	return questions, nil
}

// FallbackQuestion is the fixed wording for a single field.
func FallbackQuestion(field types.FieldDefinition) Question {
	label := cases.Lower(language.Vietnamese).String(field.DisplayLabel())
	ask := fmt.Sprintf("Bác cho cháu xin %s ạ.", label)
	if !field.IsRequired() {
		ask += optionalNote
	}
	return Question{
		Name:     field.Name,
		Ask:      ask,
		Reprompt: fmt.Sprintf("Cháu xin phép chưa nghe rõ, bác nhắc lại %s giúp cháu với ạ.", label),
		Example:  CleanExample(field.Example),
	}
}

// CleanExample drops any "Ví dụ:" marker so callers can add their own.
func CleanExample(example string) string {
	example = strings.ReplaceAll(example, "Ví dụ:", "")
	example = strings.ReplaceAll(example, "Ví dụ :", "")
	return strings.TrimSpace(example)
}

// LocalPreviewer lists every field with its answer and joins them into prose.
type LocalPreviewer struct{}

func (LocalPreviewer) Preview(ctx context.Context, f *form.Form, answers map[string]string) (*Preview, error) {
	rows := make([]types.PreviewRow, 0, len(f.Fields))
	parts := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		label := field.DisplayLabel()
		value := answers[field.Name]
		rows = append(rows, types.PreviewRow{Label: label, Value: value})
		parts = append(parts, fmt.Sprintf("%s: %s", label, value))
	}
	return &Preview{Rows: rows, Prose: strings.Join(parts, " ")}, nil
}

type FailbackGenerator struct {
	generators []Generator
}

func NewFailbackGenerator(generators ...Generator) *FailbackGenerator {
	return &FailbackGenerator{generators: generators}
}

func (g *FailbackGenerator) Questions(ctx context.Context, f *form.Form) ([]Question, error) {
	var lastErr error
	for _, generator := range g.generators {
		questions, err := generator.Questions(ctx, f)
		if err == nil {
			return questions, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all question generators failed: %w", lastErr)
}

type FailbackPreviewer struct {
	previewers []Previewer
}

func NewFailbackPreviewer(previewers ...Previewer) *FailbackPreviewer {
	return &FailbackPreviewer{previewers: previewers}
}

func (p *FailbackPreviewer) Preview(ctx context.Context, f *form.Form, answers map[string]string) (*Preview, error) {
	var lastErr error
	for _, previewer := range p.previewers {
		preview, err := previewer.Preview(ctx, f, answers)
		if err == nil {
			return preview, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all previewers failed: %w", lastErr)
}
