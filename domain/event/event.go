package event

import (
	"messenger-lab/domain"
)

type DomainEvent interface {
	ConversationID() string
}

// Kind tags a change notification coming from the live feed.
type Kind int

const (
	Added Kind = iota
	Modified
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Change is one externally-sourced feed event carrying a full message
// snapshot. The timeline reconciles these one at a time.
type Change struct {
	Kind    Kind
	Message domain.Message
}

func (c Change) ConversationID() string {
	return c.Message.ConversationID
}

// MessageInserted tells the presentation layer a message entered the
// timeline at Index.
type MessageInserted struct {
	Index   int
	Message domain.Message
}

func (e MessageInserted) ConversationID() string {
	return e.Message.ConversationID
}

// MessageChanged tells the presentation layer the message at Index was
// replaced in place. The index itself never moves on a change.
type MessageChanged struct {
	Index   int
	Message domain.Message
}

func (e MessageChanged) ConversationID() string {
	return e.Message.ConversationID
}

// MessageRemoved tells the presentation layer the message at Index was
// deleted upstream.
type MessageRemoved struct {
	Index        int
	MessageID    string
	Conversation string
}

func (e MessageRemoved) ConversationID() string {
	return e.Conversation
}
