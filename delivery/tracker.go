// Package delivery owns the per-message status lifecycle and issues
// the minimal set of remote updates needed to advance it.
package delivery

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"messenger-lab/contract"
	"messenger-lab/domain"
	"messenger-lab/domain/event"
	"messenger-lab/errors"
)

// Tracker drives the message state machine against the remote store.
// It holds no state of its own: every decision reads the store, every
// effect is a store write, and local mirrors are the caller's job.
type Tracker struct {
	store contract.RemoteStore
	log   *slog.Logger
	now   func() time.Time
}

func NewTracker(store contract.RemoteStore, log *slog.Logger) *Tracker {
	return &Tracker{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Send persists a freshly minted message and advances it to sent.
// The message is created in sending state; a rejected creation write is
// reported to the caller, who marks the local copy failed. There is no
// automatic retry, a resend is a new user action.
func (t *Tracker) Send(ctx context.Context, msg domain.Message) error {
	msg.Status = domain.StatusSending
	if err := t.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("create message %s: %w", msg.ID, err)
	}
	if err := t.store.UpdateMessageStatus(ctx, msg.ID, domain.StatusSent, false, t.now()); err != nil {
		// The document exists; the next snapshot or sweep will settle
		// its status. Matching creation-write outcome handling only.
		t.log.Warn("Message stored but sent confirmation failed",
			"messageId", msg.ID, "error", err)
	}
	return nil
}

// Advance issues exactly one remote update moving a message to target,
// or none at all when the transition would not be a forward one.
// Unknown identifiers are silently ignored: the event arrived for
// state we do not hold.
func (t *Tracker) Advance(ctx context.Context, messageID string, target domain.Status) error {
	msg, err := t.store.GetMessage(ctx, messageID)
	if err != nil {
		if stderrors.Is(err, errors.ErrMessageNotFound) {
			return nil
		}
		return fmt.Errorf("load message %s: %w", messageID, err)
	}
	if !msg.Status.Advances(target) {
		return nil
	}
	seen := target == domain.StatusRead
	if err := t.store.UpdateMessageStatus(ctx, messageID, target, seen, t.now()); err != nil {
		return fmt.Errorf("advance message %s to %s: %w", messageID, target, err)
	}
	return nil
}

// BulkAdvance moves every message of the conversation authored by
// someone else than excludeAuthor from one of fromStatuses to
// toStatus, in a single atomic batch. An empty selection issues zero
// writes. A failed batch leaves local and remote state unchanged.
func (t *Tracker) BulkAdvance(ctx context.Context, conversationID, excludeAuthor string,
	fromStatuses []domain.Status, toStatus domain.Status) error {
	msgs, err := t.store.QueryMessages(ctx, contract.MessageFilter{
		ConversationID: conversationID,
		ExcludeSender:  excludeAuthor,
		Statuses:       fromStatuses,
	})
	if err != nil {
		return fmt.Errorf("select messages of %s: %w", conversationID, err)
	}

	eligible := lo.Filter(msgs, func(m domain.Message, _ int) bool {
		return m.Status.Advances(toStatus)
	})
	if len(eligible) == 0 {
		return nil
	}

	ids := lo.Map(eligible, func(m domain.Message, _ int) string { return m.ID })
	seen := toStatus == domain.StatusRead
	if err := t.store.BatchUpdateStatus(ctx, ids, toStatus, seen, t.now()); err != nil {
		return fmt.Errorf("bulk advance %d messages to %s: %w", len(ids), toStatus, err)
	}
	t.log.Debug("Bulk advanced messages",
		"conversationId", conversationID, "count", len(ids), "to", toStatus.String())
	return nil
}

// Subscribe registers for the live, timestamp-ordered change feed of
// one conversation. This is the feed the timeline's Reconcile consumes.
func (t *Tracker) Subscribe(conversationID string, handler func(event.Change)) (contract.Subscription, error) {
	return t.store.SubscribeMessages(conversationID, handler)
}
