package codegen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandom_Next(t *testing.T) {
	gen := NewRandom()
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := gen.Next()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestSequence(t *testing.T) {
	seq := &Sequence{Codes: []string{"AAAA1111", "BBBB2222"}}

	code, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, "AAAA1111", code)

	code, err = seq.Next()
	require.NoError(t, err)
	assert.Equal(t, "BBBB2222", code)

	_, err = seq.Next()
	assert.Error(t, err)
}
