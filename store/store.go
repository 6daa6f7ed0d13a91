// Package store is a badger-backed implementation of the remote
// document store contract, with a live per-conversation change feed.
// It stands in for the hosted backend the client is written against.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"messenger-lab/contract"
	"messenger-lab/domain"
	"messenger-lab/domain/event"
	"messenger-lab/errors"
)

// Store keeps message documents under "msg:{conversation}:{timestamp}:{id}"
// so a prefix scan yields chronological order, with a secondary index
// "msgidx:{id}" resolving an identifier to its primary key. The key is
// formatted with 19-digit zero padding to keep lexicographical order,
// and carries the message id as a collision disconnector if two
// messages land on the same nanosecond.
type Store struct {
	db  *badger.DB
	log *slog.Logger
	hub *hub
}

func New(db *badger.DB, log *slog.Logger, feedBuffer int) *Store {
	return &Store{db: db, log: log, hub: newHub(log, feedBuffer)}
}

// Close cancels every live subscription. The badger handle stays with
// its owner.
func (s *Store) Close() {
	s.hub.close()
}

func messageKey(msg domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		msg.ConversationID, msg.SentAt.UnixNano(), msg.ID))
}

func messageIndexKey(id string) []byte {
	return []byte("msgidx:" + id)
}

func conversationKey(id string) []byte {
	return []byte("chat:" + id)
}

func directIndexKey(a, b string) []byte {
	return []byte("direct:" + domain.DirectKey(a, b))
}

func (s *Store) CreateMessage(ctx context.Context, msg domain.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	key := messageKey(msg)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(msg.ID), key)
	})
	if err != nil {
		return fmt.Errorf("store message %s: %w", msg.ID, err)
	}
	s.hub.publish(msg.ConversationID, event.Change{Kind: event.Added, Message: msg})
	return nil
}

func (s *Store) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	var msg domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		loaded, err := s.loadMessage(txn, id)
		if err != nil {
			return err
		}
		msg = loaded
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// UpdateMessageStatus rewrites the status fields of one document.
// The write is last-writer-wins: monotonicity guards live in the
// tracker, not here.
func (s *Store) UpdateMessageStatus(ctx context.Context, id string,
	target domain.Status, seen bool, at time.Time) error {
	var updated domain.Message
	err := s.db.Update(func(txn *badger.Txn) error {
		msg, err := s.loadMessage(txn, id)
		if err != nil {
			return err
		}
		applyStatus(&msg, target, seen, at)
		updated = msg
		return s.writeMessage(txn, msg)
	})
	if err != nil {
		return fmt.Errorf("update status of %s: %w", id, err)
	}
	s.hub.publish(updated.ConversationID, event.Change{Kind: event.Modified, Message: updated})
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	var removed domain.Message
	err := s.db.Update(func(txn *badger.Txn) error {
		msg, err := s.loadMessage(txn, id)
		if err != nil {
			return err
		}
		removed = msg
		if err := txn.Delete(messageKey(msg)); err != nil {
			return err
		}
		return txn.Delete(messageIndexKey(id))
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrMessageNotFound) {
			return nil
		}
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	s.hub.publish(removed.ConversationID, event.Change{Kind: event.Removed, Message: removed})
	return nil
}

// QueryMessages scans one conversation in ascending send order and
// applies the filter. A document that fails to decode is skipped and
// logged; a single bad record must not take the query down.
func (s *Store) QueryMessages(ctx context.Context, filter contract.MessageFilter) ([]domain.Message, error) {
	var msgs []domain.Message
	prefix := []byte("msg:" + filter.ConversationID + ":")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(value []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					s.log.Warn("Skipping malformed message document",
						"key", string(item.Key()), "error", err)
					return nil
				}
				if matches(msg, filter) {
					msgs = append(msgs, msg)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query messages of %s: %w", filter.ConversationID, err)
	}
	return msgs, nil
}

// BatchUpdateStatus applies one status transition to every listed
// message inside a single transaction: either all documents move or
// none do. Identifiers that no longer resolve are skipped.
func (s *Store) BatchUpdateStatus(ctx context.Context, ids []string,
	target domain.Status, seen bool, at time.Time) error {
	var updated []domain.Message
	err := s.db.Update(func(txn *badger.Txn) error {
		updated = updated[:0]
		for _, id := range ids {
			msg, err := s.loadMessage(txn, id)
			if err != nil {
				if stderrors.Is(err, errors.ErrMessageNotFound) {
					continue
				}
				return err
			}
			applyStatus(&msg, target, seen, at)
			if err := s.writeMessage(txn, msg); err != nil {
				return err
			}
			updated = append(updated, msg)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch update %d messages: %w", len(ids), err)
	}
	for _, msg := range updated {
		s.hub.publish(msg.ConversationID, event.Change{Kind: event.Modified, Message: msg})
	}
	return nil
}

func (s *Store) SubscribeMessages(conversationID string, handler func(event.Change)) (contract.Subscription, error) {
	return s.hub.subscribe(conversationID, handler)
}

func (s *Store) loadMessage(txn *badger.Txn, id string) (domain.Message, error) {
	item, err := txn.Get(messageIndexKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	primaryKey, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Message{}, err
	}
	item, err = txn.Get(primaryKey)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("decode message %s: %w", id, err)
	}
	return msg, nil
}

func (s *Store) writeMessage(txn *badger.Txn, msg domain.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}
	return txn.Set(messageKey(msg), value)
}

func applyStatus(msg *domain.Message, target domain.Status, seen bool, at time.Time) {
	msg.Status = target
	if seen {
		msg.Seen = true
	}
	switch target {
	case domain.StatusDelivered:
		stamp := at
		msg.DeliveredAt = &stamp
	case domain.StatusRead:
		stamp := at
		msg.ReadAt = &stamp
	}
}

func matches(msg domain.Message, filter contract.MessageFilter) bool {
	if filter.ExcludeSender != "" && msg.SenderID == filter.ExcludeSender {
		return false
	}
	if len(filter.Statuses) == 0 {
		return true
	}
	for _, status := range filter.Statuses {
		if msg.Status == status {
			return true
		}
	}
	return false
}
