// Package command classifies what the user typed while a value waits for
// confirmation.
package command

import "context"

type Reply string

const (
	Accept  Reply = "accept"
	Reject  Reply = "reject"
	Cancel  Reply = "cancel"
	Unknown Reply = "unknown"
)

func (r Reply) Valid() bool {
	switch r {
	case Accept, Reject, Cancel, Unknown:
		return true
	default:
		return false
	}
}

// Request carries the confirmation question and the user's answer to it.
type Request struct {
	Question string
	Value    string
	Answer   string
}

type Parser interface {
	ParseReply(ctx context.Context, req *Request) (Reply, error)
}
