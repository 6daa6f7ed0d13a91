// Package search maintains a full-text index over message bodies so a
// conversation's history can be searched without scanning the store.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"

	"messenger-lab/domain"
	"messenger-lab/moderation"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open bluge writer: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Add indexes one message. The body is indexed as text, the
// conversation as an exact keyword so searches stay scoped, and the
// detected language is kept as metadata.
func (i *Index) Add(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID).
		AddField(bluge.NewTextField("text", msg.Text).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", msg.ConversationID).StoreValue()).
		AddField(bluge.NewKeywordField("sender", msg.SenderID))
	if lang := moderation.Language(msg.Text); lang != "" {
		doc.AddField(bluge.NewKeywordField("lang", lang))
	}
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index message %s: %w", msg.ID, err)
	}
	return nil
}

// Search returns the identifiers of the best-matching messages of one
// conversation for the given terms.
func (i *Index) Search(ctx context.Context, conversationID, terms string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open bluge reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Debug("Failed to close bluge reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("text")).
		AddMust(bluge.NewTermQuery(conversationID).SetField("conversation"))

	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", terms, err)
	}

	var ids []string
	match, err := it.Next()
	for err == nil && match != nil {
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		match, err = it.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return ids, nil
}
