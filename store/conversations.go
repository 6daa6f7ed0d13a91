package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"messenger-lab/domain"
	"messenger-lab/errors"
)

func (s *Store) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	value, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", conv.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(conversationKey(conv.ID), value); err != nil {
			return err
		}
		// Direct conversations are additionally indexed by their
		// canonical participant pair, so the same two users always
		// resolve to the same conversation.
		if !conv.IsGroup && len(conv.Participants) == 2 {
			pair := directIndexKey(conv.Participants[0], conv.Participants[1])
			return txn.Set(pair, []byte(conv.ID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store conversation %s: %w", conv.ID, err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	var conv domain.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(value, &conv)
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

// FindDirectConversation resolves the direct conversation of a user
// pair, if one was ever created. This is the lookup half of
// lookup-before-create.
func (s *Store) FindDirectConversation(ctx context.Context, a, b string) (domain.Conversation, bool, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(directIndexKey(a, b))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id = string(raw)
		return nil
	})
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("lookup direct conversation: %w", err)
	}
	if id == "" {
		return domain.Conversation{}, false, nil
	}
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return conv, true, nil
}

func (s *Store) UpdateLastMessage(ctx context.Context, conversationID string, preview domain.Preview) error {
	err := s.mutateConversation(conversationID, func(conv *domain.Conversation) {
		conv.LastMessage = &preview
	})
	if err != nil {
		return fmt.Errorf("update last message of %s: %w", conversationID, err)
	}
	return nil
}

// RemoveParticipant rewrites the participant list without userID.
// Removing someone who already left is a no-op on the document.
func (s *Store) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	err := s.mutateConversation(conversationID, func(conv *domain.Conversation) {
		conv.Participants = lo.Without(conv.Participants, userID)
	})
	if err != nil {
		return fmt.Errorf("remove participant from %s: %w", conversationID, err)
	}
	return nil
}

func (s *Store) SetGroupAdmin(ctx context.Context, conversationID, userID string) error {
	err := s.mutateConversation(conversationID, func(conv *domain.Conversation) {
		conv.GroupAdmin = userID
	})
	if err != nil {
		return fmt.Errorf("set group admin of %s: %w", conversationID, err)
	}
	return nil
}

// mutateConversation applies one read-modify-write to a conversation
// document inside a single transaction.
func (s *Store) mutateConversation(id string, mutate func(*domain.Conversation)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var conv domain.Conversation
		if err := json.Unmarshal(value, &conv); err != nil {
			return err
		}
		mutate(&conv)
		updated, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		return txn.Set(conversationKey(id), updated)
	})
}
