package core

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionID identifies one processing run. Viewers use it to discard
// messages that belong to a previous run after a reload.
type SessionID string

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// ParseSessionID validates s as a session identifier.
func ParseSessionID(s string) (SessionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid session id %q: %w", s, err)
	}
	return SessionID(id.String()), nil
}

func (id SessionID) String() string {
	return string(id)
}
