package types

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrFormNotFound      = errors.New("form not found")
	ErrProtocolViolation = errors.New("protocol violation")
)

// ProtocolError reports an event that does not match the session stage.
type ProtocolError struct {
	Event string
	Stage Stage
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s is not allowed in stage %s", ErrProtocolViolation, e.Event, e.Stage)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolViolation
}
