package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		v := New()
		assert.False(t, ids[v], "ID should be unique: %s", v)
		assert.True(t, Valid(v))
		ids[v] = true
	}

	assert.Len(t, ids, count)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("2f1e6b4c-3a9d-4f7e-8c21-5d0b9a7e6f13"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("not-a-uuid"))
}

func TestObjectToken_Format(t *testing.T) {
	seen := make(map[string]bool)
	for range 500 {
		token, err := ObjectToken()
		require.NoError(t, err)
		assert.Len(t, token, objectTokenLength)
		assert.False(t, strings.ContainsAny(token, "-_"), "token must not contain separators: %s", token)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestMustObjectToken(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustObjectToken())
	})
}
