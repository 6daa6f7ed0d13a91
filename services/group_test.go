package services

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"messenger-lab/errors"
)

func seedGroup(t *testing.T, f *fixture) (string, *ChatService, *ChatService) {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()

	alice := f.service(t, "alice", nil)
	bob := f.service(t, "bob", nil)
	conv, err := alice.CreateGroup(ctx, CreateGroupCommand{
		Name:    "ops",
		Members: []string{"bob", "clara"},
	})
	req.NoError(err)
	return conv.ID, alice, bob
}

func TestChatService_RemoveMember(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	convID, alice, _ := seedGroup(t, f)

	req.NoError(alice.RemoveMember(ctx, convID, "clara"))

	conv, err := f.store.GetConversation(ctx, convID)
	req.NoError(err)
	req.False(conv.HasParticipant("clara"))
	req.Len(conv.Participants, 2)

	// Removing someone who already left
	req.Error(alice.RemoveMember(ctx, convID, "clara"))
}

func TestChatService_RemoveMember_AdminOnly(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	convID, _, bob := seedGroup(t, f)

	req.ErrorIs(bob.RemoveMember(ctx, convID, "clara"), errors.ErrNotGroupAdmin)

	conv, err := f.store.GetConversation(ctx, convID)
	req.NoError(err)
	req.True(conv.HasParticipant("clara"))
}

func TestChatService_RemoveMember_SelfIsLeaving(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	convID, _, bob := seedGroup(t, f)

	// A non-admin removing themselves leaves the group
	req.NoError(bob.RemoveMember(ctx, convID, "bob"))

	conv, err := f.store.GetConversation(ctx, convID)
	req.NoError(err)
	req.False(conv.HasParticipant("bob"))
	req.Equal("alice", conv.GroupAdmin)
}

func TestChatService_MakeAdmin(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	convID, alice, bob := seedGroup(t, f)

	req.NoError(alice.MakeAdmin(ctx, convID, "bob"))

	conv, err := f.store.GetConversation(ctx, convID)
	req.NoError(err)
	req.Equal("bob", conv.GroupAdmin)

	// The former administrator lost the privilege
	req.ErrorIs(alice.MakeAdmin(ctx, convID, "clara"), errors.ErrNotGroupAdmin)
	// The new one holds it
	req.NoError(bob.MakeAdmin(ctx, convID, "clara"))
}

func TestChatService_MakeAdmin_RejectsOutsider(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	convID, alice, _ := seedGroup(t, f)

	req.Error(alice.MakeAdmin(ctx, convID, "mallory"))
}

func TestChatService_LeaveGroup_AdminHandsOver(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	convID, alice, _ := seedGroup(t, f)

	req.NoError(alice.LeaveGroup(ctx, convID))

	conv, err := f.store.GetConversation(ctx, convID)
	req.NoError(err)
	req.False(conv.HasParticipant("alice"))
	req.Len(conv.Participants, 2)
	// Administration passed to a remaining member
	req.NotEqual("alice", conv.GroupAdmin)
	req.True(conv.HasParticipant(conv.GroupAdmin))
}

func TestChatService_LeaveGroup_MemberKeepsAdmin(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	convID, _, bob := seedGroup(t, f)

	req.NoError(bob.LeaveGroup(ctx, convID))

	conv, err := f.store.GetConversation(ctx, convID)
	req.NoError(err)
	req.False(conv.HasParticipant("bob"))
	req.Equal("alice", conv.GroupAdmin)
}

func TestChatService_GroupOpsRejectDirectConversations(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.service(t, "alice", nil)

	conv, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)

	req.ErrorIs(alice.RemoveMember(ctx, conv.ID, "bob"), errors.ErrNotAGroup)
	req.ErrorIs(alice.MakeAdmin(ctx, conv.ID, "bob"), errors.ErrNotAGroup)
	req.ErrorIs(alice.LeaveGroup(ctx, conv.ID), errors.ErrNotAGroup)
}

func TestSession_ParentContextCancelClosesSession(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.service(t, "alice", nil)

	conv, err := alice.OpenDirect(context.Background(), "bob")
	req.NoError(err)

	openCtx, cancel := context.WithCancel(context.Background())
	view, err := alice.Open(openCtx, conv.ID, nil)
	req.NoError(err)
	defer view.Close()

	cancel()

	// Callers on a live context are turned away instead of blocking
	waitUntil(t, func() bool {
		_, err := view.Messages(context.Background())
		return stderrors.Is(err, errors.ErrSessionClosed)
	})
	req.False(f.presence.IsForeground(conv.ID))
}
