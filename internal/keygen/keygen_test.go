package keygen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_Format(t *testing.T) {
	secret, err := Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, Prefix))
	body := strings.TrimPrefix(secret, Prefix)
	assert.Len(t, body, 64)
	for _, r := range body {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestGenerate_NoCollisions(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		secret, err := Generate()
		require.NoError(t, err)
		_, dup := seen[secret]
		require.False(t, dup, "duplicate secret after %d iterations", i)
		seen[secret] = struct{}{}
	}
}

func TestGenerate_EntropyFailurePropagates(t *testing.T) {
	orig := entropy
	entropy = failingReader{}
	defer func() { entropy = orig }()

	secret, err := Generate()
	assert.Error(t, err)
	assert.Empty(t, secret)
	assert.Contains(t, err.Error(), "entropy exhausted")
}

func TestDigest(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Digest("abc"))
	assert.Len(t, Digest("klya_x"), 64)
	assert.NotEqual(t, Digest("a"), Digest("b"))
}

func TestHint(t *testing.T) {
	secret := Prefix + strings.Repeat("ab", 32)
	assert.Equal(t, "klya_abababa", Hint(secret))
	assert.Equal(t, "short", Hint("short"))
}
