// Package domain contains core concepts of the messenger.
// This file defines Message entities and the merge rules applied
// when a snapshot of an already-known message arrives from the feed.
package domain

import (
	"time"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Message is one entry of a conversation timeline.
// ID is minted by the sender before any remote write; SentAt is the
// logical send time and never changes once assigned.
type Message struct {
	ID             string     `json:"id"`
	SenderID       string     `json:"senderId"`
	ConversationID string     `json:"conversationId"`
	Text           string     `json:"text"`
	Kind           Kind       `json:"kind"`
	MediaURL       string     `json:"mediaUrl,omitempty"`
	SentAt         time.Time  `json:"sentAt"`
	Status         Status     `json:"status"`
	Seen           bool       `json:"seen"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// Merge applies an incoming snapshot of the same message on top of m.
// Mutable fields follow the snapshot, but status, seen and the
// delivery/read timestamps are monotonic: a stale snapshot carrying an
// older status never rewinds what the local copy already knows.
func (m Message) Merge(incoming Message) Message {
	merged := incoming
	merged.ID = m.ID
	merged.SentAt = m.SentAt
	merged.Seen = m.Seen || incoming.Seen
	if m.Status.Dominates(incoming.Status) {
		merged.Status = m.Status
	}
	if merged.DeliveredAt == nil {
		merged.DeliveredAt = m.DeliveredAt
	}
	if merged.ReadAt == nil {
		merged.ReadAt = m.ReadAt
	}
	return merged
}

// Inbound reports whether the message was authored by someone else
// than the given local user.
func (m Message) Inbound(selfID string) bool {
	return m.SenderID != selfID
}

// Preview is the cached "last message" summary kept on a conversation
// so list screens can render without loading full history.
type Preview struct {
	Text     string    `json:"text"`
	SenderID string    `json:"senderId"`
	SentAt   time.Time `json:"sentAt"`
	Seen     bool      `json:"seen"`
}

func (m Message) Preview() Preview {
	return Preview{
		Text:     m.Text,
		SenderID: m.SenderID,
		SentAt:   m.SentAt,
		Seen:     m.Seen,
	}
}
