package validate

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/tbxark/formpilot/types"
)

const (
	emailPattern = `[\w.+-]+@[\w-]+(\.[\w-]+)+`
	phonePattern = `(0|\+84)\d{9,10}`
)

// Chain evaluates rules in declared order.
type Chain struct {
	rules []Rule
	now   func() time.Time
}

type ChainOption func(*Chain)

// WithClock sets the clock used to resolve "today" date bounds.
func WithClock(now func() time.Time) ChainOption {
	return func(c *Chain) {
		if now != nil {
			c.now = now
		}
	}
}

func NewChain(rules []Rule, opts ...ChainOption) *Chain {
	c := &Chain{rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForField compiles the declared validators of a field, then the rule
// implied by its type, then its pattern.
func ForField(field types.FieldDefinition, opts ...ChainOption) (*Chain, error) {
	rules := make([]Rule, 0, len(field.Validators)+2)
	declared := map[Kind]bool{}
	for i, spec := range field.Validators {
		rule, err := Compile(spec)
		if err != nil {
			return nil, fmt.Errorf("validator %d: %w", i, err)
		}
		declared[rule.Kind()] = true
		rules = append(rules, rule)
	}
	implied, err := impliedRule(field, declared)
	if err != nil {
		return nil, err
	}
	if implied != nil {
		rules = append(rules, implied)
	}
	if field.Pattern != "" {
		re, err := NewRegex(field.Pattern, fmt.Sprintf("%s chưa đúng.", field.DisplayLabel()))
		if err != nil {
			return nil, fmt.Errorf("field pattern: %w", err)
		}
		rules = append(rules, re)
	}
	return NewChain(rules, opts...), nil
}

func impliedRule(field types.FieldDefinition, declared map[Kind]bool) (Rule, error) {
	switch field.Type {
	case types.FieldEmail:
		if declared[KindRegex] || field.Pattern != "" {
			return nil, nil
		}
		return NewRegex(emailPattern, "Email chưa đúng định dạng.")
	case types.FieldPhone:
		if declared[KindRegex] || field.Pattern != "" {
			return nil, nil
		}
		return NewRegex(phonePattern, "Số điện thoại chưa đúng.")
	case types.FieldNumeric:
		if declared[KindNumericRange] {
			return nil, nil
		}
		return &NumericRange{}, nil
	case types.FieldDate:
		if declared[KindDateRange] {
			return nil, nil
		}
		return &DateRange{}, nil
	default:
		return nil, nil
	}
}

func (c *Chain) Rules() []Rule {
	return c.rules
}

// Check returns the reason of the first failing rule.
func (c *Chain) Check(value string) (bool, string) {
	now := c.now()
	for _, rule := range c.rules {
		if ok, reason := check(rule, value, now); !ok {
			return false, reason
		}
	}
	return true, ""
}

func check(rule Rule, value string, now time.Time) (bool, string) {
	switch r := rule.(type) {
	case *Regex:
		if r.re.MatchString(value) {
			return true, ""
		}
		return false, orDefault(r.Message, "Dữ liệu chưa đúng định dạng.")
	case *Length:
		n := utf8.RuneCountInString(value)
		if (r.Min == nil || n >= *r.Min) && (r.Max == nil || n <= *r.Max) {
			return true, ""
		}
		return false, orDefault(r.Message, lengthReason(r.Min, r.Max))
	case *NumericRange:
		num, err := ParseNumber(value)
		if err != nil {
			return false, orDefault(r.Message, "Cần số.")
		}
		if (r.Min == nil || num >= *r.Min) && (r.Max == nil || num <= *r.Max) {
			return true, ""
		}
		return false, orDefault(r.Message, rangeReason(r.Min, r.Max))
	case *DateRange:
		d, err := ParseDate(value)
		if err != nil {
			return false, "Ngày nên là dd/mm/yyyy."
		}
		if r.Min != nil && d.Before(r.Min.resolve(now)) {
			return false, orDefault(r.Message, "Ngày ngoài khoảng cho phép.")
		}
		if r.Max != nil && d.After(r.Max.resolve(now)) {
			return false, orDefault(r.Message, "Ngày ngoài khoảng cho phép.")
		}
		return true, ""
	default:
		return false, fmt.Sprintf("unsupported rule %T", rule)
	}
}

func orDefault(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}

func lengthReason(minLen, maxLen *int) string {
	switch {
	case minLen != nil && maxLen != nil:
		return fmt.Sprintf("Độ dài cần %d–%d ký tự.", *minLen, *maxLen)
	case minLen != nil:
		return fmt.Sprintf("Độ dài cần ít nhất %d ký tự.", *minLen)
	default:
		return fmt.Sprintf("Độ dài tối đa %d ký tự.", *maxLen)
	}
}

func rangeReason(minVal, maxVal *float64) string {
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	switch {
	case minVal != nil && maxVal != nil:
		return fmt.Sprintf("Giá trị cần trong [%s, %s].", format(*minVal), format(*maxVal))
	case minVal != nil:
		return fmt.Sprintf("Giá trị cần từ %s trở lên.", format(*minVal))
	default:
		return fmt.Sprintf("Giá trị cần không quá %s.", format(*maxVal))
	}
}
