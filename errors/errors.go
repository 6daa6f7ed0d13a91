package errors

import "fmt"

var (
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrNoCurrentUser        = fmt.Errorf("no authenticated user")
	ErrEmptyContent         = fmt.Errorf("message has no text and no media")
	ErrTooFewParticipants   = fmt.Errorf("a conversation needs at least two participants")
	ErrNotAGroup            = fmt.Errorf("conversation is not a group")
	ErrNotGroupAdmin        = fmt.Errorf("only the group administrator may do this")
	ErrUnsupportedMedia     = fmt.Errorf("unsupported media type")
	ErrSessionClosed        = fmt.Errorf("session is closed")
	ErrInvalidPassword      = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidToken         = fmt.Errorf("invalid or expired token")
	ErrInvalidHash          = fmt.Errorf("stored hash has an invalid format")
)
