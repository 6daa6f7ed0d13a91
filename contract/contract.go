//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"time"

	"messenger-lab/domain"
	"messenger-lab/domain/event"
)

// Subscription is a cancellable handle on a live feed. After Cancel
// returns no further events reach the handler; queued events are
// discarded.
type Subscription interface {
	Cancel()
}

// EventSink receives timeline notifications. This is the seam towards
// the presentation layer: a list adapter, a console printer, a test
// recorder.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Identity exposes the current authenticated user, or none.
type Identity interface {
	CurrentUserID() (string, bool)
}

// StatusAdvancer is what the timeline needs from the delivery tracker
// to auto-advance inbound messages to read.
type StatusAdvancer interface {
	Advance(ctx context.Context, messageID string, target domain.Status) error
}

// MessageFilter selects messages of one conversation. ExcludeSender
// and Statuses narrow the selection; empty values mean "no filter".
type MessageFilter struct {
	ConversationID string
	ExcludeSender  string
	Statuses       []domain.Status
}

// RemoteStore is the hosted document store the client builds on.
// Writes are last-writer-wins per field, except BatchUpdateStatus
// which applies its whole selection atomically.
type RemoteStore interface {
	CreateMessage(ctx context.Context, msg domain.Message) error
	GetMessage(ctx context.Context, id string) (domain.Message, error)
	UpdateMessageStatus(ctx context.Context, id string, target domain.Status, seen bool, at time.Time) error
	DeleteMessage(ctx context.Context, id string) error
	QueryMessages(ctx context.Context, filter MessageFilter) ([]domain.Message, error)
	BatchUpdateStatus(ctx context.Context, ids []string, target domain.Status, seen bool, at time.Time) error

	// SubscribeMessages registers for the ordered live change feed of
	// one conversation. Events are delivered to handler one at a time,
	// in order, until the subscription is cancelled.
	SubscribeMessages(conversationID string, handler func(event.Change)) (Subscription, error)

	CreateConversation(ctx context.Context, conv domain.Conversation) error
	GetConversation(ctx context.Context, id string) (domain.Conversation, error)
	FindDirectConversation(ctx context.Context, a, b string) (domain.Conversation, bool, error)
	UpdateLastMessage(ctx context.Context, conversationID string, preview domain.Preview) error
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
	SetGroupAdmin(ctx context.Context, conversationID, userID string) error
}
