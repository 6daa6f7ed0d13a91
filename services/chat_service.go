// Package services wires the messaging core together: conversation
// bootstrap, the per-conversation session loop, and the send flow.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"messenger-lab/contract"
	"messenger-lab/delivery"
	"messenger-lab/domain"
	"messenger-lab/errors"
	"messenger-lab/moderation"
	"messenger-lab/observability"
	"messenger-lab/presence"
	"messenger-lab/search"
)

var validate = validator.New()

type ChatService struct {
	store         contract.RemoteStore
	tracker       *delivery.Tracker
	identity      contract.Identity
	presence      *presence.Table
	moderator     *moderation.Moderator
	index         *search.Index
	monitor       *observability.Monitor
	log           *slog.Logger
	commandBuffer int
}

func NewChatService(store contract.RemoteStore, tracker *delivery.Tracker,
	identity contract.Identity, table *presence.Table,
	moderator *moderation.Moderator, index *search.Index,
	monitor *observability.Monitor, log *slog.Logger, commandBuffer int) *ChatService {
	return &ChatService{
		store:         store,
		tracker:       tracker,
		identity:      identity,
		presence:      table,
		moderator:     moderator,
		index:         index,
		monitor:       monitor,
		log:           log,
		commandBuffer: commandBuffer,
	}
}

// OpenDirect resolves the direct conversation with another user,
// creating it only when no conversation for the pair exists yet. The
// lookup-before-create is what keeps a pair's identifier stable.
func (s *ChatService) OpenDirect(ctx context.Context, otherUserID string) (domain.Conversation, error) {
	selfID, ok := s.identity.CurrentUserID()
	if !ok {
		return domain.Conversation{}, errors.ErrNoCurrentUser
	}

	conv, found, err := s.store.FindDirectConversation(ctx, selfID, otherUserID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if found {
		return conv, nil
	}

	conv = domain.NewDirect(selfID, otherUserID)
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info("Created direct conversation",
		"conversationId", conv.ID, "with", otherUserID)
	return conv, nil
}

type CreateGroupCommand struct {
	Name    string   `validate:"required,min=1,max=64"`
	Members []string `validate:"required,min=2,dive,required"`
}

// CreateGroup mints a fresh group conversation with the current user
// as administrator. Group identifiers are never reused.
func (s *ChatService) CreateGroup(ctx context.Context, cmd CreateGroupCommand) (domain.Conversation, error) {
	selfID, ok := s.identity.CurrentUserID()
	if !ok {
		return domain.Conversation{}, errors.ErrNoCurrentUser
	}
	if err := validate.Struct(cmd); err != nil {
		return domain.Conversation{}, fmt.Errorf("invalid group command: %w", err)
	}

	participants := lo.Uniq(append([]string{selfID}, cmd.Members...))
	if len(participants) < 3 {
		return domain.Conversation{}, errors.ErrTooFewParticipants
	}

	conv := domain.NewGroup(cmd.Name, selfID, participants)
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info("Created group conversation",
		"conversationId", conv.ID, "name", cmd.Name, "members", len(participants))
	return conv, nil
}

// RemoveMember expels a member from a group. Only the administrator
// may remove others; removing oneself is the same as leaving.
func (s *ChatService) RemoveMember(ctx context.Context, conversationID, userID string) error {
	selfID, ok := s.identity.CurrentUserID()
	if !ok {
		return errors.ErrNoCurrentUser
	}
	if userID == selfID {
		return s.LeaveGroup(ctx, conversationID)
	}

	conv, err := s.groupAdministeredBy(ctx, conversationID, selfID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return fmt.Errorf("user %s is not part of conversation %s", userID, conversationID)
	}
	if err := s.store.RemoveParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	s.log.Info("Removed group member",
		"conversationId", conversationID, "member", userID)
	return nil
}

// MakeAdmin hands group administration to another member.
func (s *ChatService) MakeAdmin(ctx context.Context, conversationID, userID string) error {
	selfID, ok := s.identity.CurrentUserID()
	if !ok {
		return errors.ErrNoCurrentUser
	}
	conv, err := s.groupAdministeredBy(ctx, conversationID, selfID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return fmt.Errorf("user %s is not part of conversation %s", userID, conversationID)
	}
	if err := s.store.SetGroupAdmin(ctx, conversationID, userID); err != nil {
		return err
	}
	s.log.Info("Transferred group administration",
		"conversationId", conversationID, "admin", userID)
	return nil
}

// LeaveGroup removes the current user from a group. When the
// administrator leaves, administration passes to the first remaining
// member so the group is never left without one.
func (s *ChatService) LeaveGroup(ctx context.Context, conversationID string) error {
	selfID, ok := s.identity.CurrentUserID()
	if !ok {
		return errors.ErrNoCurrentUser
	}
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return errors.ErrNotAGroup
	}
	if !conv.HasParticipant(selfID) {
		return fmt.Errorf("user %s is not part of conversation %s", selfID, conversationID)
	}

	if err := s.store.RemoveParticipant(ctx, conversationID, selfID); err != nil {
		return err
	}
	if conv.GroupAdmin == selfID {
		if remaining := lo.Without(conv.Participants, selfID); len(remaining) > 0 {
			if err := s.store.SetGroupAdmin(ctx, conversationID, remaining[0]); err != nil {
				return err
			}
			s.log.Info("Group administration handed over",
				"conversationId", conversationID, "admin", remaining[0])
		}
	}
	s.log.Info("Left group", "conversationId", conversationID, "member", selfID)
	return nil
}

func (s *ChatService) groupAdministeredBy(ctx context.Context, conversationID, userID string) (domain.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conv.IsGroup {
		return domain.Conversation{}, errors.ErrNotAGroup
	}
	if conv.GroupAdmin != userID {
		return domain.Conversation{}, errors.ErrNotGroupAdmin
	}
	return conv, nil
}

// Open attaches a live session to a conversation: the timeline starts
// consuming the feed, the conversation is marked foreground, and the
// delivered/read sweeps for inbound backlog are issued.
func (s *ChatService) Open(ctx context.Context, conversationID string, sink contract.EventSink) (*Session, error) {
	selfID, ok := s.identity.CurrentUserID()
	if !ok {
		return nil, errors.ErrNoCurrentUser
	}
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(selfID) {
		return nil, fmt.Errorf("user %s is not part of conversation %s", selfID, conversationID)
	}
	return newSession(ctx, s, conv, selfID, sink)
}
