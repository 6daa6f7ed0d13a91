package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"messenger-lab/contract"
	"messenger-lab/delivery"
	"messenger-lab/domain"
	"messenger-lab/moderation"
	"messenger-lab/observability"
	"messenger-lab/presence"
	"messenger-lab/store"
)

// staticIdentity is a test stand-in for the authentication provider.
type staticIdentity string

func (s staticIdentity) CurrentUserID() (string, bool) {
	return string(s), s != ""
}

type fixture struct {
	store    *store.Store
	tracker  *delivery.Tracker
	presence *presence.Table
	monitor  *observability.Monitor
	log      *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	docStore := store.New(db, log, 64)
	t.Cleanup(docStore.Close)

	return &fixture{
		store:    docStore,
		tracker:  delivery.NewTracker(docStore, log),
		presence: presence.NewTable(),
		monitor:  observability.NewMonitor(),
		log:      log,
	}
}

func (f *fixture) service(t *testing.T, userID string, moderator *moderation.Moderator) *ChatService {
	t.Helper()
	return NewChatService(f.store, f.tracker, staticIdentity(userID), f.presence,
		moderator, nil, f.monitor, f.log, 16)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestChatService_OpenDirect_ReusesConversationForPair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	alice := f.service(t, "alice", nil)
	bob := f.service(t, "bob", nil)

	first, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)

	// The other side resolves the very same conversation
	second, err := bob.OpenDirect(ctx, "alice")
	req.NoError(err)
	req.Equal(first.ID, second.ID)
}

func TestChatService_CreateGroup_Validation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.service(t, "alice", nil)

	_, err := alice.CreateGroup(ctx, CreateGroupCommand{Name: "", Members: []string{"bob", "clara"}})
	req.Error(err)

	_, err = alice.CreateGroup(ctx, CreateGroupCommand{Name: "ops", Members: []string{"bob", "alice"}})
	req.Error(err)

	conv, err := alice.CreateGroup(ctx, CreateGroupCommand{Name: "ops", Members: []string{"bob", "clara"}})
	req.NoError(err)
	req.True(conv.IsGroup)
	req.Len(conv.Participants, 3)
	req.Equal("alice", conv.GroupAdmin)
}

func TestSession_SendFlow_AdvancesToSent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.service(t, "alice", nil)

	conv, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)

	view, err := alice.Open(ctx, conv.ID, nil)
	req.NoError(err)
	defer view.Close()

	req.NoError(view.Send(ctx, SendCommand{Text: "hi"}))

	// The optimistic copy is on the timeline right away
	msgs, err := view.Messages(ctx)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("hi", msgs[0].Text)

	// The feed echo settles the local status on sent
	waitUntil(t, func() bool {
		msgs, err := view.Messages(ctx)
		return err == nil && len(msgs) == 1 && msgs[0].Status == domain.StatusSent
	})

	// The conversation preview follows the send
	fetched, err := f.store.GetConversation(ctx, conv.ID)
	req.NoError(err)
	req.NotNil(fetched.LastMessage)
	req.Equal("hi", fetched.LastMessage.Text)
}

func TestSession_OpenSweepsInboundBacklogToRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.service(t, "alice", nil)
	bob := f.service(t, "bob", nil)

	conv, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)

	aliceView, err := alice.Open(ctx, conv.ID, nil)
	req.NoError(err)
	defer aliceView.Close()

	req.NoError(aliceView.Send(ctx, SendCommand{Text: "first"}))
	req.NoError(aliceView.Send(ctx, SendCommand{Text: "second"}))

	// Bob opens the conversation later; the history loads onto his
	// timeline and the backlog is swept to read
	bobView, err := bob.Open(ctx, conv.ID, nil)
	req.NoError(err)
	defer bobView.Close()

	waitUntil(t, func() bool {
		msgs, err := bobView.Messages(ctx)
		return err == nil && len(msgs) == 2
	})

	waitUntil(t, func() bool {
		msgs, err := f.store.QueryMessages(ctx, contract.MessageFilter{ConversationID: conv.ID})
		if err != nil || len(msgs) != 2 {
			return false
		}
		for _, msg := range msgs {
			if msg.Status != domain.StatusRead || !msg.Seen {
				return false
			}
		}
		return true
	})

	// Alice's own timeline converges on read through the feed
	waitUntil(t, func() bool {
		msgs, err := aliceView.Messages(ctx)
		if err != nil || len(msgs) != 2 {
			return false
		}
		return msgs[0].Status == domain.StatusRead && msgs[1].Status == domain.StatusRead
	})
}

func TestSession_AutoAdvancesLiveInboundMessage(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.service(t, "alice", nil)
	bob := f.service(t, "bob", nil)

	conv, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)

	bobView, err := bob.Open(ctx, conv.ID, nil)
	req.NoError(err)
	defer bobView.Close()

	aliceView, err := alice.Open(ctx, conv.ID, nil)
	req.NoError(err)
	defer aliceView.Close()

	// Alice sends while Bob has the conversation open
	req.NoError(aliceView.Send(ctx, SendCommand{Text: "are you there?"}))

	// Bob's open timeline reads it without any sweep
	waitUntil(t, func() bool {
		msgs, err := bobView.Messages(ctx)
		return err == nil && len(msgs) == 1 &&
			msgs[0].Status == domain.StatusRead && msgs[0].Seen
	})
}

func TestSession_SendRejectsEmptyContent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.service(t, "alice", nil)

	conv, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)
	view, err := alice.Open(ctx, conv.ID, nil)
	req.NoError(err)
	defer view.Close()

	req.Error(view.Send(ctx, SendCommand{}))
	msgs, err := view.Messages(ctx)
	req.NoError(err)
	req.Empty(msgs)
}

func TestSession_CensorsOutboundText(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	moderator, err := moderation.NewModerator([]string{"badger"}, '*', f.log)
	req.NoError(err)
	alice := f.service(t, "alice", moderator)

	conv, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)
	view, err := alice.Open(ctx, conv.ID, nil)
	req.NoError(err)
	defer view.Close()

	req.NoError(view.Send(ctx, SendCommand{Text: "the badger is here"}))

	msgs, err := view.Messages(ctx)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("the ****** is here", msgs[0].Text)
}

func TestSession_PresenceFollowsOpenAndClose(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.service(t, "alice", nil)

	conv, err := alice.OpenDirect(ctx, "bob")
	req.NoError(err)

	view, err := alice.Open(ctx, conv.ID, nil)
	req.NoError(err)
	req.True(f.presence.IsForeground(conv.ID))
	req.False(f.presence.ShouldNotify(conv.ID))

	view.Close()
	req.False(f.presence.IsForeground(conv.ID))
	req.True(f.presence.ShouldNotify(conv.ID))

	// A closed session rejects further work
	req.Error(view.Send(ctx, SendCommand{Text: "late"}))
}
