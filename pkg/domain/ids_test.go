package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidateID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCandidateID("")
		require.Error(t, err)
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseCandidateID("not-a-uuid")
		require.Error(t, err)
	})

	t.Run("round-trips valid UUIDs", func(t *testing.T) {
		id := NewCandidateID()
		parsed, err := ParseCandidateID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}

func TestParseSessionID(t *testing.T) {
	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseSessionID("xyz")
		require.Error(t, err)
	})

	t.Run("round-trips valid UUIDs", func(t *testing.T) {
		id := NewSessionID()
		parsed, err := ParseSessionID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})
}

func TestIDJSONEncoding(t *testing.T) {
	t.Run("candidate ID encodes as a string", func(t *testing.T) {
		id := NewCandidateID()
		data, err := json.Marshal(id)
		require.NoError(t, err)
		assert.JSONEq(t, `"`+id.String()+`"`, string(data))

		var decoded CandidateID
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, id, decoded)
	})

	t.Run("session ID encodes as a string", func(t *testing.T) {
		id := NewSessionID()
		data, err := json.Marshal(id)
		require.NoError(t, err)
		assert.JSONEq(t, `"`+id.String()+`"`, string(data))
	})

	t.Run("rejects malformed text", func(t *testing.T) {
		var decoded SessionID
		assert.Error(t, json.Unmarshal([]byte(`"garbage"`), &decoded))
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, CandidateID{}.IsNil())
	assert.True(t, SessionID{}.IsNil())
	assert.False(t, NewCandidateID().IsNil())
	assert.False(t, NewSessionID().IsNil())
}

func TestDistinctTypes(t *testing.T) {
	// Both wrap uuid.UUID but must not compare or convert implicitly.
	u := uuid.New()
	c := CandidateID(u)
	s := SessionID(u)
	assert.Equal(t, c.String(), s.String())
}
