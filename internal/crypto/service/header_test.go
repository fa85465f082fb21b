package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
)

func TestGenerateHeader(t *testing.T) {
	header := GenerateHeader()

	assert.Equal(t, []byte{3, 'I', 'R', 'O', 'N', 0, 0}, header)
}

func TestIsCiphertext(t *testing.T) {
	t.Run("recognizes generated header with payload", func(t *testing.T) {
		framed := append(GenerateHeader(), 0xde, 0xad)
		assert.True(t, IsCiphertext(framed))
	})

	t.Run("rejects header without payload", func(t *testing.T) {
		assert.False(t, IsCiphertext(GenerateHeader()))
	})

	t.Run("rejects short input", func(t *testing.T) {
		assert.False(t, IsCiphertext([]byte{3, 'I', 'R', 'O'}))
		assert.False(t, IsCiphertext(nil))
	})

	t.Run("rejects plaintext", func(t *testing.T) {
		assert.False(t, IsCiphertext([]byte("this is not ciphertext")))
	})

	t.Run("rejects wrong version", func(t *testing.T) {
		framed := append(GenerateHeader(), 1)
		framed[0] = 2
		assert.False(t, IsCiphertext(framed))
	})

	t.Run("rejects wrong magic", func(t *testing.T) {
		framed := append(GenerateHeader(), 1)
		framed[2] = 'X'
		assert.False(t, IsCiphertext(framed))
	})

	t.Run("rejects nonzero extra header size", func(t *testing.T) {
		framed := append(GenerateHeader(), 1, 2, 3)
		framed[6] = 1
		assert.False(t, IsCiphertext(framed))
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("returns payload after header", func(t *testing.T) {
		payload := []byte{9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 11, 12}
		framed := append(GenerateHeader(), payload...)

		got, err := ParseHeader(framed)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("fails on plaintext", func(t *testing.T) {
		_, err := ParseHeader([]byte("definitely not an encrypted document"))
		assert.ErrorIs(t, err, cryptoDomain.ErrMalformedCiphertext)
	})

	t.Run("fails closed on nonzero extra header size", func(t *testing.T) {
		framed := append(GenerateHeader(), make([]byte, 32)...)
		framed[6] = 4
		_, err := ParseHeader(framed)
		assert.ErrorIs(t, err, cryptoDomain.ErrMalformedCiphertext)
	})
}
