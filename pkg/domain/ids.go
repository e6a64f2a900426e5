package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed UUID wrappers for the identifiers that cross package boundaries.
// Keeping them distinct types prevents a candidate ID from being passed
// where a session ID is expected.

// CandidateID identifies the person being assessed.
type CandidateID uuid.UUID

// SessionID identifies one proctored assessment session.
type SessionID uuid.UUID

// NewCandidateID returns a fresh random candidate ID.
func NewCandidateID() CandidateID {
	return CandidateID(uuid.New())
}

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseCandidateID validates and converts a string form.
func ParseCandidateID(s string) (CandidateID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CandidateID{}, fmt.Errorf("parse candidate id: %w", err)
	}
	return CandidateID(u), nil
}

// ParseSessionID validates and converts a string form.
func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, fmt.Errorf("parse session id: %w", err)
	}
	return SessionID(u), nil
}

func (id CandidateID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string   { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero UUID.
func (id CandidateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero UUID.
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the canonical UUID string, so both IDs serialize as
// strings in JSON bodies rather than byte arrays.
func (id CandidateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID string form.
func (id *CandidateID) UnmarshalText(b []byte) error {
	parsed, err := ParseCandidateID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText renders the canonical UUID string.
func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID string form.
func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
