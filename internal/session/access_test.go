package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vigil/pkg/domainerrors"
)

func TestGenerateAccessCode(t *testing.T) {
	a, err := GenerateAccessCode()
	require.NoError(t, err)
	b, err := GenerateAccessCode()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}

func TestHashAccessCode(t *testing.T) {
	t.Run("round-trips through verification", func(t *testing.T) {
		hash, err := HashAccessCode("open-sesame")
		require.NoError(t, err)
		assert.NoError(t, verifyAccessCode("open-sesame", hash))
	})

	t.Run("rejects empty codes", func(t *testing.T) {
		_, err := HashAccessCode("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects codes beyond the bcrypt limit", func(t *testing.T) {
		long := make([]byte, 100)
		for i := range long {
			long[i] = 'a'
		}
		_, err := HashAccessCode(string(long))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestVerifyAccessCode(t *testing.T) {
	hash, err := HashAccessCode("correct")
	require.NoError(t, err)

	err = verifyAccessCode("incorrect", hash)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
