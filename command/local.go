package command

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LocalParser matches keywords after folding case and diacritics, so
// "Đúng rồi", "dung roi" and "ĐÚNG" all read the same. A keyword matches the
// whole answer or its leading words.
type LocalParser struct {
	CancelKeywords []string
	RejectKeywords []string
	AcceptKeywords []string
}

func NewLocalParser() *LocalParser {
	return &LocalParser{
		CancelKeywords: []string{"huy", "huy bo", "thoat", "dung lai", "cancel", "quit", "exit", "stop"},
		RejectKeywords: []string{"da khong", "da sai", "da chua", "chua dung", "khong dung", "khong phai", "sai", "khong", "chua", "no", "nope"},
		AcceptKeywords: []string{"dung", "co", "vang", "u", "da", "phai", "chinh xac", "yes", "y", "ok", "okay"},
	}
}

func (p *LocalParser) ParseReply(ctx context.Context, req *Request) (Reply, error) {
	return p.Classify(req.Answer), nil
}

// Classify checks cancel, then reject, then accept keywords.
func (p *LocalParser) Classify(answer string) Reply {
	text := Fold(answer)
	if text == "" {
		return Unknown
	}
	switch {
	case matchAny(text, p.CancelKeywords):
		return Cancel
	case matchAny(text, p.RejectKeywords):
		return Reject
	case matchAny(text, p.AcceptKeywords):
		return Accept
	default:
		return Unknown
	}
}

// IsCancel reports whether the text asks to stop filling the form.
func IsCancel(text string) bool {
	return matchAny(Fold(text), NewLocalParser().CancelKeywords)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases, removes diacritics and punctuation and collapses spaces.
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = strings.Map(func(r rune) rune {
		switch {
		case r == 'đ':
			return 'd'
		case unicode.IsPunct(r):
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

func matchAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if text == k || strings.HasPrefix(text, k+" ") {
			return true
		}
	}
	return false
}

// FailbackParser asks each parser in turn and keeps the first answer that
// is not Unknown.
type FailbackParser struct {
	parsers []Parser
}

func NewFailbackParser(parsers ...Parser) *FailbackParser {
	return &FailbackParser{parsers: parsers}
}

func (p *FailbackParser) ParseReply(ctx context.Context, req *Request) (Reply, error) {
	var lastErr error
	answered := false
	for _, parser := range p.parsers {
		reply, err := parser.ParseReply(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		answered = true
		if reply != Unknown {
			return reply, nil
		}
	}
	if !answered && lastErr != nil {
		return Unknown, fmt.Errorf("all reply parsers failed: %w", lastErr)
	}
	return Unknown, nil
}
