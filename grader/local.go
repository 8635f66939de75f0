package grader

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tbxark/formpilot/types"
	"github.com/tbxark/formpilot/validate"
)

// Policy holds the thresholds of LocalGrader.
type Policy struct {
	MinAge          int
	MaxAge          int
	MaxYearsBack    int
	MinAddressRunes int
	Placeholders    []string
}

func DefaultPolicy() Policy {
	return Policy{
		MinAge:          18,
		MaxAge:          90,
		MaxYearsBack:    100,
		MinAddressRunes: 10,
		Placeholders:    []string{"abc", "test", "xxx", "asdf", "không có", "khong co", "n/a", "none", "không biết"},
	}
}

// LocalGrader applies rule-based heuristics keyed on the field name, label
// and type.
type LocalGrader struct {
	Policy Policy
	Now    func() time.Time
}

func NewLocalGrader() *LocalGrader {
	return &LocalGrader{Policy: DefaultPolicy(), Now: time.Now}
}

func (g *LocalGrader) Grade(ctx context.Context, req *Request) (*Verdict, error) {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	field := req.Field
	value := req.Value

	switch {
	case isAgeField(field):
		age, err := validate.ParseNumber(value)
		if err != nil {
			return &Verdict{}, nil
		}
		if int(age) < g.Policy.MinAge || int(age) > g.Policy.MaxAge {
			return &Verdict{
				Suspicious: true,
				Message:    "Bác năm nay " + value + " tuổi phải không ạ?",
				Hint:       "Tuổi tính theo năm, ví dụ: 65.",
			}, nil
		}
	case field.Type == types.FieldDate:
		d, err := validate.ParseDate(value)
		if err != nil {
			return &Verdict{}, nil
		}
		if isBirthDateField(field) {
			age := yearsBetween(d, now)
			if age < g.Policy.MinAge || age > g.Policy.MaxAge {
				return &Verdict{Suspicious: true, Message: "Bác sinh ngày " + value + " phải không ạ?"}, nil
			}
			break
		}
		if d.After(now) || yearsBetween(d, now) > g.Policy.MaxYearsBack {
			return &Verdict{Suspicious: true, Message: DefaultConfirmation(value)}, nil
		}
	case isNameField(field):
		if strings.IndexFunc(value, unicode.IsDigit) >= 0 || g.isPlaceholder(value) {
			return &Verdict{
				Suspicious: true,
				Message:    DefaultConfirmation(value),
				Hint:       "Họ tên đầy đủ, không có chữ số.",
			}, nil
		}
	case isAddressField(field):
		if utf8.RuneCountInString(value) < g.Policy.MinAddressRunes {
			return &Verdict{
				Suspicious: true,
				Message:    DefaultConfirmation(value),
				Hint:       "Ghi rõ số nhà, đường, phường/xã, quận/huyện.",
			}, nil
		}
	}
	if field.Type == types.FieldString && g.isPlaceholder(value) {
		return &Verdict{Suspicious: true, Message: DefaultConfirmation(value)}, nil
	}
	return &Verdict{}, nil
}

func (g *LocalGrader) isPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, p := range g.Policy.Placeholders {
		if v == p {
			return true
		}
	}
	return false
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

func matches(field types.FieldDefinition, names []string, labels []string) bool {
	name := strings.ToLower(field.Name)
	for _, n := range names {
		if name == n || strings.HasSuffix(name, "_"+n) || strings.HasPrefix(name, n+"_") {
			return true
		}
	}
	label := strings.ToLower(field.Label)
	for _, l := range labels {
		if strings.Contains(label, l) {
			return true
		}
	}
	return false
}

func isAgeField(field types.FieldDefinition) bool {
	if field.Type != types.FieldNumeric && field.Type != "" && field.Type != types.FieldString {
		return false
	}
	return matches(field, []string{"age", "tuoi"}, []string{"tuổi"})
}

func isBirthDateField(field types.FieldDefinition) bool {
	return matches(field, []string{"birth", "dob", "birthday", "ngay_sinh", "birth_date"}, []string{"sinh"})
}

func isNameField(field types.FieldDefinition) bool {
	return matches(field, []string{"name", "full_name", "ho_ten"}, []string{"họ tên", "họ và tên"})
}

func isAddressField(field types.FieldDefinition) bool {
	return matches(field, []string{"address", "dia_chi"}, []string{"địa chỉ"})
}
