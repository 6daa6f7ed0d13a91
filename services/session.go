package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"messenger-lab/contract"
	"messenger-lab/delivery"
	"messenger-lab/domain"
	"messenger-lab/domain/event"
	"messenger-lab/errors"
	"messenger-lab/media"
	"messenger-lab/moderation"
	"messenger-lab/observability"
	"messenger-lab/presence"
	"messenger-lab/projection"
	"messenger-lab/search"
)

// Session is one open conversation view. A single goroutine owns the
// timeline: feed events and caller commands are funneled into one
// queue and executed sequentially, so the timeline itself needs no
// locking and "I requested X" always becomes visible before anything
// issued after it.
type Session struct {
	conv      domain.Conversation
	selfID    string
	timeline  *projection.Timeline
	tracker   *delivery.Tracker
	store     contract.RemoteStore
	presence  *presence.Table
	moderator *moderation.Moderator
	index     *search.Index
	monitor   *observability.Monitor
	log       *slog.Logger

	sub       contract.Subscription
	commands  chan func(ctx context.Context)
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(ctx context.Context, svc *ChatService, conv domain.Conversation,
	selfID string, sink contract.EventSink) (*Session, error) {
	s := &Session{
		conv:      conv,
		selfID:    selfID,
		tracker:   svc.tracker,
		store:     svc.store,
		presence:  svc.presence,
		moderator: svc.moderator,
		index:     svc.index,
		monitor:   svc.monitor,
		log:       svc.log,
		commands:  make(chan func(ctx context.Context), svc.commandBuffer),
		done:      make(chan struct{}),
	}
	s.timeline = projection.NewTimeline(conv.ID, selfID, svc.tracker, sink, svc.log)

	sub, err := svc.tracker.Subscribe(conv.ID, func(change event.Change) {
		s.enqueue(func(ctx context.Context) {
			s.timeline.Reconcile(ctx, change)
			s.monitor.IncrEventsReconciled()
		})
	})
	if err != nil {
		return nil, err
	}
	s.sub = sub
	s.presence.Attach(conv.ID)

	go s.loop(ctx)

	// Existing history arrives as Added changes, the same shape the
	// live feed uses, so overlap with early feed events is harmless.
	s.enqueue(func(ctx context.Context) {
		msgs, err := s.store.QueryMessages(ctx, contract.MessageFilter{ConversationID: conv.ID})
		if err != nil {
			s.log.Warn("Failed to load conversation history",
				"conversationId", conv.ID, "error", err)
			return
		}
		for _, msg := range msgs {
			s.timeline.Reconcile(ctx, event.Change{Kind: event.Added, Message: msg})
		}
	})

	// Conversation-open sweeps: inbound backlog becomes delivered,
	// then read, each in one atomic batch.
	s.enqueue(func(ctx context.Context) {
		if err := s.tracker.BulkAdvance(ctx, conv.ID, selfID,
			[]domain.Status{domain.StatusSent}, domain.StatusDelivered); err != nil {
			s.log.Warn("Delivered sweep failed", "conversationId", conv.ID, "error", err)
		}
		if err := s.tracker.BulkAdvance(ctx, conv.ID, selfID,
			[]domain.Status{domain.StatusSent, domain.StatusDelivered}, domain.StatusRead); err != nil {
			s.log.Warn("Read sweep failed", "conversationId", conv.ID, "error", err)
		}
		s.monitor.IncrBulkSweeps()
	})

	return s, nil
}

func (s *Session) Conversation() domain.Conversation {
	return s.conv
}

type SendCommand struct {
	Text     string
	Media    []byte
	MediaURL string
}

// Send runs the optimistic send flow: censor, classify, append the
// message locally in sending state, persist it, and reflect a rejected
// write as a local failed status. The returned error is the remote
// outcome; the timeline has already been updated either way.
func (s *Session) Send(ctx context.Context, cmd SendCommand) error {
	if cmd.Text == "" && len(cmd.Media) == 0 {
		return errors.ErrEmptyContent
	}
	return s.run(ctx, func(ctx context.Context) error {
		return s.send(ctx, cmd)
	})
}

func (s *Session) send(ctx context.Context, cmd SendCommand) error {
	text := cmd.Text
	if s.moderator != nil && text != "" {
		censored, found := s.moderator.Censor(text)
		if len(found) > 0 {
			s.log.Debug("Censored outbound message", "words", len(found))
		}
		text = censored
	}

	kind, mime, err := media.Classify(cmd.Media)
	if err != nil {
		return err
	}
	if kind != domain.KindText {
		s.log.Debug("Classified outbound media", "kind", string(kind), "mime", mime)
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		SenderID:       s.selfID,
		ConversationID: s.conv.ID,
		Text:           text,
		Kind:           kind,
		MediaURL:       cmd.MediaURL,
		SentAt:         time.Now().UTC(),
		Status:         domain.StatusSending,
	}

	s.timeline.AppendLocal(ctx, msg)

	if err := s.tracker.Send(ctx, msg); err != nil {
		s.timeline.SetStatus(ctx, msg.ID, domain.StatusFailed)
		s.monitor.IncrMessagesFailed()
		return err
	}

	if err := s.store.UpdateLastMessage(ctx, s.conv.ID, msg.Preview()); err != nil {
		s.log.Warn("Failed to update conversation preview",
			"conversationId", s.conv.ID, "error", err)
	}
	if s.index != nil && msg.Text != "" {
		if err := s.index.Add(msg); err != nil {
			s.log.Warn("Failed to index message", "messageId", msg.ID, "error", err)
		}
	}
	s.monitor.IncrMessagesSent()
	return nil
}

// Messages returns a snapshot of the ordered timeline.
func (s *Session) Messages(ctx context.Context) ([]domain.Message, error) {
	var snapshot []domain.Message
	err := s.run(ctx, func(ctx context.Context) error {
		snapshot = s.timeline.Messages()
		return nil
	})
	return snapshot, err
}

// Search finds messages of this conversation matching the terms.
func (s *Session) Search(ctx context.Context, terms string, limit int) ([]domain.Message, error) {
	if s.index == nil {
		return nil, nil
	}
	ids, err := s.index.Search(ctx, s.conv.ID, terms, limit)
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	for _, id := range ids {
		msg, err := s.store.GetMessage(ctx, id)
		if err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close detaches the view: the feed subscription is revoked, queued
// work is discarded, and the conversation leaves the foreground table.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.sub.Cancel()
		s.presence.Detach(s.conv.ID)
		close(s.done)
	})
}

// run executes fn on the session goroutine and waits for its result.
func (s *Session) run(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	wrapped := func(ctx context.Context) {
		result <- fn(ctx)
	}
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.commands <- wrapped:
	}
	select {
	case <-s.done:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-result:
		return err
	}
}

// enqueue schedules fn without waiting. Events arriving after Close
// are dropped.
func (s *Session) enqueue(fn func(ctx context.Context)) {
	select {
	case <-s.done:
	case s.commands <- fn:
	}
}

// loop closes the whole session on exit, so a cancelled parent
// context does not leave callers blocked on a view nobody serves.
func (s *Session) loop(ctx context.Context) {
	defer s.Close()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case fn := <-s.commands:
			fn(ctx)
		}
	}
}
