package session

import (
	"errors"
	"fmt"

	"chat-client/internal/messages"
)

var (
	ErrNoIdentity          = errors.New("session: no identity")
	ErrNoSelection         = errors.New("session: no conversation selected")
	ErrEmptyMessage        = errors.New("session: message is empty")
	ErrNotGroup            = errors.New("session: conversation is not a group")
	ErrNotGroupAdmin       = errors.New("session: only the group admin may change members")
	ErrAlreadyMember       = errors.New("session: user is already a member")
	ErrInvalidGroup        = errors.New("session: group needs a name and at least two members")
	ErrUnknownConversation = errors.New("session: unknown conversation")

	// ErrStaleResult marks a result that arrived after the state it was
	// requested for moved on. It is never returned to callers.
	ErrStaleResult = messages.ErrStale
)

// FetchError is a failed retrieval (conversation list, history, search).
// The previous state is kept; the caller may retry.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("session: fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SendError is a rejected outbound message. The buffer is not touched and
// the input should be kept for a retry.
type SendError struct {
	ConversationID string
	Err            error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("session: send to %s: %v", e.ConversationID, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
