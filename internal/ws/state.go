package ws

import (
	"errors"
	"fmt"
)

// State is the live channel lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrInvalidIdentity is returned by Connect for an identity without id or token.
var ErrInvalidIdentity = errors.New("ws: identity requires id and token")

// ConnectionError reports a channel that failed to open or dropped. It is
// logged and retried, never returned from Emit.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ws %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
