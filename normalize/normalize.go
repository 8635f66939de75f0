// Package normalize implements the text transforms applied to raw answers
// before they are validated.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

type Kind string

const (
	StripSpaces        Kind = "strip_spaces"
	CollapseWhitespace Kind = "collapse_whitespace"
	UpperCase          Kind = "upper_case"
	LowerCase          Kind = "lower_case"
	TitleCase          Kind = "title_case"
	NFC                Kind = "nfc"
	PhoneDigits        Kind = "phone_digits"
)

var known = map[string]Kind{
	string(StripSpaces):        StripSpaces,
	string(CollapseWhitespace): CollapseWhitespace,
	string(UpperCase):          UpperCase,
	string(LowerCase):          LowerCase,
	string(TitleCase):          TitleCase,
	string(NFC):                NFC,
	string(PhoneDigits):        PhoneDigits,
	// older catalogs
	"upper": UpperCase,
	"lower": LowerCase,
}

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	phoneSeparators = regexp.MustCompile(`[\s.()-]+`)
)

// Parse maps a catalog identifier to a Kind.
func Parse(id string) (Kind, error) {
	k, ok := known[strings.TrimSpace(id)]
	if !ok {
		return "", fmt.Errorf("unknown normalizer %q", id)
	}
	return k, nil
}

// Chain is an ordered list of normalizers applied left to right.
type Chain []Kind

func Compile(ids []string) (Chain, error) {
	chain := make(Chain, 0, len(ids))
	for _, id := range ids {
		k, err := Parse(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, k)
	}
	return chain, nil
}

func (c Chain) Apply(raw string) string {
	out := raw
	for _, k := range c {
		out = k.Apply(out)
	}
	return out
}

// Apply runs a single transform. Casers are stateful, so one is built per call.
func (k Kind) Apply(s string) string {
	switch k {
	case StripSpaces:
		return strings.TrimSpace(s)
	case CollapseWhitespace:
		return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	case UpperCase:
		return cases.Upper(language.Vietnamese).String(s)
	case LowerCase:
		return cases.Lower(language.Vietnamese).String(s)
	case TitleCase:
		return cases.Title(language.Vietnamese).String(s)
	case NFC:
		return norm.NFC.String(s)
	case PhoneDigits:
		// "0912 345 678" and "0912.345.678" both become 0912345678.
		return phoneSeparators.ReplaceAllString(s, "")
	default:
		return s
	}
}
