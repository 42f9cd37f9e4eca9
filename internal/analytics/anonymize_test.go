package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerrors "conductcli/internal/errors"
)

func TestAnonymizer_Token(t *testing.T) {
	a, err := NewAnonymizer([]byte("test-secret-key-material"), DefaultTokenLength)
	require.NoError(t, err)

	t.Run("deterministic for identical input", func(t *testing.T) {
		assert.Equal(t, a.Token("S12345"), a.Token("S12345"))
	})

	t.Run("distinct inputs yield distinct tokens", func(t *testing.T) {
		assert.NotEqual(t, a.Token("S12345"), a.Token("S12346"))
	})

	t.Run("token carries no trace of the input", func(t *testing.T) {
		token := a.Token("S12345")
		assert.NotContains(t, token, "S12345")
		assert.Len(t, token, DefaultTokenLength)
	})

	t.Run("null input maps to null output", func(t *testing.T) {
		assert.Equal(t, "", a.Token(""))
	})
}

func TestAnonymizer_KeyVariance(t *testing.T) {
	a, err := NewAnonymizer([]byte("first-secret-key-material"), DefaultTokenLength)
	require.NoError(t, err)
	b, err := NewAnonymizer([]byte("other-secret-key-material"), DefaultTokenLength)
	require.NoError(t, err)

	assert.NotEqual(t, a.Token("S12345"), b.Token("S12345"))
}

func TestAnonymizer_TokenLength(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantLen int
	}{
		{name: "configured length", length: 16, wantLen: 16},
		{name: "zero falls back to the default", length: 0, wantLen: DefaultTokenLength},
		{name: "clamped to the full digest", length: 200, wantLen: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnonymizer([]byte("test-secret-key-material"), tt.length)
			require.NoError(t, err)
			assert.Len(t, a.Token("S12345"), tt.wantLen)
		})
	}
}

func TestNewAnonymizer_EmptySecret(t *testing.T) {
	_, err := NewAnonymizer(nil, DefaultTokenLength)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeerrors.ErrConfigInvalid)
}
