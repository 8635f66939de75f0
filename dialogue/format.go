package dialogue

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/tbxark/formpilot/form"
	"github.com/tbxark/formpilot/types"
)

type fieldMetadata struct {
	Name     string          `json:"name"`
	Label    string          `json:"label"`
	Type     types.FieldType `json:"type,omitempty"`
	Required bool            `json:"required"`
	Example  string          `json:"example,omitempty"`
}

type formMetadata struct {
	ID     string          `json:"form_id"`
	Title  string          `json:"title"`
	Fields []fieldMetadata `json:"fields"`
}

func formatFormMetadata(f *form.Form) (string, error) {
	meta := formMetadata{ID: f.ID, Title: f.Title, Fields: make([]fieldMetadata, len(f.Fields))}
	for i, field := range f.Fields {
		meta.Fields[i] = fieldMetadata{
			Name:     field.Name,
			Label:    field.DisplayLabel(),
			Type:     field.Type,
			Required: field.IsRequired(),
			Example:  field.Example,
		}
	}
	data, err := sonic.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Form metadata:\n```json\n%s\n```", data), nil
}

// formatAnswers keeps only answered fields, in form order.
func formatAnswers(f *form.Form, answers map[string]string) (string, error) {
	rows := make([]types.PreviewRow, 0, len(answers))
	for _, field := range f.Fields {
		if v, ok := answers[field.Name]; ok && v != "" {
			rows = append(rows, types.PreviewRow{Label: field.DisplayLabel(), Value: v})
		}
	}
	data, err := sonic.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Form title: %s\nAnswers (JSON):\n```json\n%s\n```", f.Title, data), nil
}
