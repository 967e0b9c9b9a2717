package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionID identifies one editing session.
type SessionID string

// DraftID identifies a stored draft revision.
type DraftID string

// NewSessionID generates a UUIDv7 session identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// NewDraftID generates a UUIDv7 draft identifier.
// Time-ordered IDs keep the newest draft last in the drafts index.
func NewDraftID() DraftID {
	return DraftID(uuid.Must(uuid.NewV7()).String())
}

// ParseSessionID validates and converts a string to SessionID.
func ParseSessionID(s string) (SessionID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return SessionID(s), nil
}

// DraftIDTime extracts the timestamp embedded in a UUIDv7 draft ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func DraftIDTime(id DraftID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
