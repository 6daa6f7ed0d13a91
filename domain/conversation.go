package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a channel of two or more participants sharing one
// message timeline. Exactly two participants make a direct
// conversation; more make a group.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	IsGroup      bool      `json:"isGroup"`
	GroupName    string    `json:"groupName,omitempty"`
	GroupAdmin   string    `json:"groupAdmin,omitempty"`
	LastMessage  *Preview  `json:"lastMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DirectKey builds the canonical key for a participant pair.
// The same two users always map to the same key regardless of order,
// which is what makes lookup-before-create possible for direct
// conversations.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}

func NewDirect(a, b string) Conversation {
	return Conversation{
		ID:           uuid.NewString(),
		Participants: []string{a, b},
		CreatedAt:    time.Now().UTC(),
	}
}

// NewGroup mints a fresh conversation identifier; group identifiers
// are never reused.
func NewGroup(name, adminID string, participants []string) Conversation {
	return Conversation{
		ID:           uuid.NewString(),
		Participants: participants,
		IsGroup:      true,
		GroupName:    name,
		GroupAdmin:   adminID,
		CreatedAt:    time.Now().UTC(),
	}
}

func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
