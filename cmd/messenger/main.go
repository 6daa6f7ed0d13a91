package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"messenger-lab/auth"
	"messenger-lab/contract"
	"messenger-lab/delivery"
	"messenger-lab/domain/event"
	"messenger-lab/internal"
	"messenger-lab/moderation"
	"messenger-lab/observability"
	"messenger-lab/presence"
	"messenger-lab/search"
	"messenger-lab/services"
	"messenger-lab/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, plays a short two-user exchange, and
// centralizes error reporting so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Store, feed & delivery tracker
	docStore := store.New(db, log, config.FeedBufferSize)
	defer docStore.Close()
	tracker := delivery.NewTracker(docStore, log)

	// 4. Search index & moderation
	index, err := search.NewIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(internal.WordList(config.CensoredWords), censoredChar, log)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Two authenticated clients sharing the same backend
	table := presence.NewTable()
	monitor := observability.NewMonitor()

	alice, err := signIn("alice", config.AuthTokenDuration)
	if err != nil {
		return err
	}
	bob, err := signIn("bob", config.AuthTokenDuration)
	if err != nil {
		return err
	}

	aliceChat := services.NewChatService(docStore, tracker, alice, table,
		moderator, index, monitor, log, config.CommandBufferSize)
	bobChat := services.NewChatService(docStore, tracker, bob, table,
		moderator, index, monitor, log, config.CommandBufferSize)

	if err := converse(ctx, log, aliceChat, bobChat); err != nil {
		return err
	}

	stats := monitor.Snapshot()
	log.Info("Demo finished",
		"sent", stats.MessagesSent,
		"reconciled", stats.EventsReconciled,
		"sweeps", stats.BulkSweeps)
	return nil
}

func signIn(userID string, tokenDuration time.Duration) (*auth.Session, error) {
	token, err := auth.GenerateToken(userID, userID, tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("token generation for %s failed: %w", userID, err)
	}
	session := auth.NewSession()
	if err := session.Authenticate(token); err != nil {
		return nil, fmt.Errorf("authentication for %s failed: %w", userID, err)
	}
	return session, nil
}

// converse opens the same direct conversation from both sides and
// exchanges a couple of messages, leaving time for the feed to settle.
func converse(ctx context.Context, log *slog.Logger,
	aliceChat, bobChat *services.ChatService) error {
	conv, err := aliceChat.OpenDirect(ctx, "bob")
	if err != nil {
		return err
	}

	aliceView, err := aliceChat.Open(ctx, conv.ID, &consoleSink{log: log, owner: "alice"})
	if err != nil {
		return err
	}
	defer aliceView.Close()

	if err := aliceView.Send(ctx, services.SendCommand{Text: "Hi Bob, are you around?"}); err != nil {
		return err
	}

	bobView, err := bobChat.Open(ctx, conv.ID, &consoleSink{log: log, owner: "bob"})
	if err != nil {
		return err
	}
	defer bobView.Close()

	if err := bobView.Send(ctx, services.SendCommand{Text: "Hey Alice, just got here."}); err != nil {
		return err
	}

	// Let the subscriptions drain before reading the final state.
	time.Sleep(200 * time.Millisecond)

	msgs, err := aliceView.Messages(ctx)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		log.Info("Timeline entry",
			"sender", msg.SenderID,
			"text", msg.Text,
			"status", msg.Status.String(),
			"seen", msg.Seen)
	}
	return nil
}

// consoleSink prints timeline notifications, standing in for a list
// adapter.
type consoleSink struct {
	log   *slog.Logger
	owner string
}

func (c *consoleSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageInserted:
		c.log.Info("Inserted", "owner", c.owner, "index", evt.Index, "text", evt.Message.Text)
	case event.MessageChanged:
		c.log.Info("Changed", "owner", c.owner, "index", evt.Index, "status", evt.Message.Status.String())
	case event.MessageRemoved:
		c.log.Info("Removed", "owner", c.owner, "index", evt.Index)
	}
	return nil
}

var _ contract.EventSink = (*consoleSink)(nil)
