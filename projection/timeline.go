// Package projection builds local timelines from observed feed events.
// Handles ordering, deduplication, and status merging.
// Does not emit events upstream or interact with UI directly.
package projection

import (
	"context"
	"log/slog"
	"time"

	"messenger-lab/contract"
	"messenger-lab/domain"
	"messenger-lab/domain/event"
)

// Timeline holds the client-local view of one conversation's messages,
// sorted ascending by send time at all times. All mutations must happen
// on a single goroutine; the Timeline does no locking of its own.
type Timeline struct {
	conversationID string
	selfID         string
	advancer       contract.StatusAdvancer
	sink           contract.EventSink
	log            *slog.Logger
	messages       []domain.Message
}

func NewTimeline(conversationID, selfID string,
	advancer contract.StatusAdvancer, sink contract.EventSink,
	log *slog.Logger) *Timeline {
	return &Timeline{
		conversationID: conversationID,
		selfID:         selfID,
		advancer:       advancer,
		sink:           sink,
		log:            log,
		messages:       nil,
	}
}

func (t *Timeline) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the current ordered view.
func (t *Timeline) Messages() []domain.Message {
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Get(id string) (domain.Message, bool) {
	idx := t.indexOf(id)
	if idx < 0 {
		return domain.Message{}, false
	}
	return t.messages[idx], true
}

// Reconcile applies one feed event to the local list. It never fails:
// events targeting unknown identifiers are ignored, and a bad event
// leaves the existing state untouched.
func (t *Timeline) Reconcile(ctx context.Context, change event.Change) {
	switch change.Kind {
	case event.Added:
		t.reconcileAdded(ctx, change.Message)
	case event.Modified:
		t.reconcileModified(ctx, change.Message)
	case event.Removed:
		t.reconcileRemoved(ctx, change.Message.ID)
	default:
		t.log.Debug("Dropping feed event of unknown kind",
			"kind", int(change.Kind))
	}
}

// AppendLocal inserts an optimistic local send at the tail, before any
// remote confirmation. The feed will echo this message back later;
// Reconcile's duplicate-identifier guard makes that echo a no-op.
func (t *Timeline) AppendLocal(ctx context.Context, msg domain.Message) {
	t.messages = append(t.messages, msg)
	t.notify(ctx, event.MessageInserted{Index: len(t.messages) - 1, Message: msg})
}

// SetStatus advances the local copy only, without a remote write.
// Used by the send flow to flip a rejected message to failed.
func (t *Timeline) SetStatus(ctx context.Context, id string, target domain.Status) {
	idx := t.indexOf(id)
	if idx < 0 {
		return
	}
	if !t.messages[idx].Status.Advances(target) {
		return
	}
	t.messages[idx].Status = target
	if target == domain.StatusRead {
		t.messages[idx].Seen = true
	}
	t.notify(ctx, event.MessageChanged{Index: idx, Message: t.messages[idx]})
}

func (t *Timeline) reconcileAdded(ctx context.Context, msg domain.Message) {
	// Duplicate delivery from the feed, or the echo of AppendLocal.
	if t.indexOf(msg.ID) >= 0 {
		return
	}

	idx := t.insertionIndex(msg.SentAt)
	t.messages = append(t.messages, domain.Message{})
	copy(t.messages[idx+1:], t.messages[idx:])
	t.messages[idx] = msg
	t.notify(ctx, event.MessageInserted{Index: idx, Message: msg})

	t.autoAdvance(ctx, idx)
}

func (t *Timeline) reconcileModified(ctx context.Context, msg domain.Message) {
	idx := t.indexOf(msg.ID)
	if idx < 0 {
		return
	}
	t.messages[idx] = t.messages[idx].Merge(msg)
	t.notify(ctx, event.MessageChanged{Index: idx, Message: t.messages[idx]})
}

func (t *Timeline) reconcileRemoved(ctx context.Context, id string) {
	idx := t.indexOf(id)
	if idx < 0 {
		return
	}
	t.messages = append(t.messages[:idx], t.messages[idx+1:]...)
	t.notify(ctx, event.MessageRemoved{
		Index:        idx,
		MessageID:    id,
		Conversation: t.conversationID,
	})
}

// autoAdvance requests a transition to read for an inbound unread
// message and mirrors the outcome locally right away, so the UI does
// not need a second remote round trip to show the change.
func (t *Timeline) autoAdvance(ctx context.Context, idx int) {
	msg := t.messages[idx]
	if t.advancer == nil || !msg.Inbound(t.selfID) {
		return
	}
	if !msg.Status.Advances(domain.StatusRead) {
		return
	}
	if err := t.advancer.Advance(ctx, msg.ID, domain.StatusRead); err != nil {
		t.log.Warn("Failed to advance inbound message to read",
			"messageId", msg.ID, "error", err)
		return
	}
	now := time.Now().UTC()
	t.messages[idx].Status = domain.StatusRead
	t.messages[idx].Seen = true
	t.messages[idx].ReadAt = &now
	t.notify(ctx, event.MessageChanged{Index: idx, Message: t.messages[idx]})
}

// insertionIndex returns the first position whose message was sent
// strictly after at, defaulting to the end of the list. Equal
// timestamps keep insertion order.
func (t *Timeline) insertionIndex(at time.Time) int {
	for i, existing := range t.messages {
		if existing.SentAt.After(at) {
			return i
		}
	}
	return len(t.messages)
}

func (t *Timeline) indexOf(id string) int {
	for i, msg := range t.messages {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) notify(ctx context.Context, e event.DomainEvent) {
	if t.sink == nil {
		return
	}
	if err := t.sink.Consume(ctx, e); err != nil {
		t.log.Debug("Presentation sink rejected notification", "error", err)
	}
}
