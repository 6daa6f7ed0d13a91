package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the delivery state of a single message.
// The advance path is sending -> sent -> delivered -> read.
// failed is only reachable from sending (rejected creation write);
// failed and read are terminal.
type Status int

const (
	StatusSending Status = iota
	StatusSent
	StatusDelivered
	StatusRead
	StatusFailed
)

var statusNames = map[Status]string{
	StatusSending:   "sending",
	StatusSent:      "sent",
	StatusDelivered: "delivered",
	StatusRead:      "read",
	StatusFailed:    "failed",
}

func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return name
}

func ParseStatus(raw string) (Status, error) {
	for status, name := range statusNames {
		if name == raw {
			return status, nil
		}
	}
	return StatusSending, fmt.Errorf("unknown status %q", raw)
}

// rank positions a status on the advance path.
// failed shares the rank of sending: a snapshot claiming a later state
// proves the creation write actually landed and wins the merge.
func (s Status) rank() int {
	switch s {
	case StatusSending, StatusFailed:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

func (s Status) Terminal() bool {
	return s == StatusRead || s == StatusFailed
}

// Advances reports whether moving from s to target is a forward transition.
// Backward or same-rank transitions are rejected, which is the monotonicity
// guard: once read, a message never regresses to sent or delivered.
func (s Status) Advances(target Status) bool {
	if s.Terminal() {
		return false
	}
	if target == StatusFailed {
		return s == StatusSending
	}
	return target.rank() > s.rank()
}

// Dominates reports whether s must survive a merge against incoming.
func (s Status) Dominates(incoming Status) bool {
	return s.rank() > incoming.rank()
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
