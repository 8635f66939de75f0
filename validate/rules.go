// Package validate checks normalized answers against the rules declared
// for a field. Rules are evaluated in order and the first failure wins.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tbxark/formpilot/types"
)

type Kind string

const (
	KindRegex        Kind = "regex"
	KindLength       Kind = "length"
	KindNumericRange Kind = "numeric_range"
	KindDateRange    Kind = "date_range"
)

// Rule is one of *Regex, *Length, *NumericRange or *DateRange.
type Rule interface {
	Kind() Kind
	sealed()
}

type Regex struct {
	Pattern string
	Message string
	re      *regexp.Regexp
}

type Length struct {
	Min     *int
	Max     *int
	Message string
}

type NumericRange struct {
	Min     *float64
	Max     *float64
	Message string
}

type DateRange struct {
	Min     *DateBound
	Max     *DateBound
	Message string
}

// DateBound is either a fixed calendar date or the evaluation day.
type DateBound struct {
	Today bool
	Date  time.Time
}

func (b DateBound) resolve(now time.Time) time.Time {
	if b.Today {
		return dateOnly(now)
	}
	return b.Date
}

func (*Regex) Kind() Kind        { return KindRegex }
func (*Length) Kind() Kind       { return KindLength }
func (*NumericRange) Kind() Kind { return KindNumericRange }
func (*DateRange) Kind() Kind    { return KindDateRange }

func (*Regex) sealed()        {}
func (*Length) sealed()       {}
func (*NumericRange) sealed() {}
func (*DateRange) sealed()    {}

// NewRegex compiles pattern so that it must match the whole value.
func NewRegex(pattern, message string) (*Regex, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &Regex{Pattern: pattern, Message: message, re: re}, nil
}

// Compile turns a catalog validator spec into a Rule.
func Compile(spec types.ValidatorSpec) (Rule, error) {
	switch Kind(spec.KindName()) {
	case KindRegex:
		if spec.Pattern == "" {
			return nil, fmt.Errorf("regex validator requires a pattern")
		}
		return NewRegex(spec.Pattern, spec.Message)
	case KindLength:
		minLen, err := optionalInt(spec.Min)
		if err != nil {
			return nil, fmt.Errorf("length min: %w", err)
		}
		maxLen, err := optionalInt(spec.Max)
		if err != nil {
			return nil, fmt.Errorf("length max: %w", err)
		}
		if minLen != nil && maxLen != nil && *minLen > *maxLen {
			return nil, fmt.Errorf("length min %d greater than max %d", *minLen, *maxLen)
		}
		return &Length{Min: minLen, Max: maxLen, Message: spec.Message}, nil
	case KindNumericRange:
		minVal, err := optionalFloat(spec.Min)
		if err != nil {
			return nil, fmt.Errorf("numeric_range min: %w", err)
		}
		maxVal, err := optionalFloat(spec.Max)
		if err != nil {
			return nil, fmt.Errorf("numeric_range max: %w", err)
		}
		if minVal != nil && maxVal != nil && *minVal > *maxVal {
			return nil, fmt.Errorf("numeric_range min %v greater than max %v", *minVal, *maxVal)
		}
		return &NumericRange{Min: minVal, Max: maxVal, Message: spec.Message}, nil
	case KindDateRange:
		minDate, err := optionalDate(spec.Min)
		if err != nil {
			return nil, fmt.Errorf("date_range min: %w", err)
		}
		maxDate, err := optionalDate(spec.Max)
		if err != nil {
			return nil, fmt.Errorf("date_range max: %w", err)
		}
		if minDate != nil && maxDate != nil && !minDate.Today && !maxDate.Today && minDate.Date.After(maxDate.Date) {
			return nil, fmt.Errorf("date_range min after max")
		}
		return &DateRange{Min: minDate, Max: maxDate, Message: spec.Message}, nil
	case "":
		return nil, fmt.Errorf("validator kind is missing")
	default:
		return nil, fmt.Errorf("unknown validator kind %q", spec.KindName())
	}
}

func optionalInt(v any) (*int, error) {
	f, err := optionalFloat(v)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != float64(int(*f)) {
		return nil, fmt.Errorf("%v is not an integer", *f)
	}
	n := int(*f)
	return &n, nil
}

func optionalFloat(v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil, nil
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	case fmt.Stringer:
		return optionalFloat(n.String())
	case string:
		if strings.TrimSpace(n) == "" {
			return nil, nil
		}
		parsed, err := ParseNumber(n)
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, fmt.Errorf("unsupported number %v (%T)", v, v)
	}
	return &f, nil
}

func optionalDate(v any) (*DateBound, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &DateBound{Date: dateOnly(d)}, nil
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return nil, nil
		}
		if strings.EqualFold(s, "today") {
			return &DateBound{Today: true}, nil
		}
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return &DateBound{Date: t}, nil
		}
		t, err := ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("invalid date bound %q", s)
		}
		return &DateBound{Date: t}, nil
	default:
		return nil, fmt.Errorf("unsupported date bound %v (%T)", v, v)
	}
}

// decimalPattern admits plain decimals only: no exponents, hex, NaN or Inf.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+)(?:[.,](\d+))?$`)

// ParseNumber reads a plain decimal with either a dot or a comma as the
// decimal mark. A mark followed by exactly three digits, as in 1.000 or
// 1,000, reads as a thousands group and is rejected.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	m := decimalPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("not a decimal number: %q", s)
	}
	if len(m[2]) == 3 {
		return 0, fmt.Errorf("ambiguous digit grouping: %q", s)
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

var dateLayouts = []string{"02/01/2006", "2/1/2006"}

// ParseDate parses the user-facing dd/mm/yyyy format. Impossible calendar
// dates such as 31/02 are rejected.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
