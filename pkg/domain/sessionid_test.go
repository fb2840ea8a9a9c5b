package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserSessionID(t *testing.T) {
	a := NewUserSessionID()
	b := NewUserSessionID()

	assert.True(t, strings.HasPrefix(a, "user-"))
	assert.NotEqual(t, a, b)
}

func TestNewEphemeralSessionID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewEphemeralSessionID("auto")
		assert.True(t, strings.HasPrefix(id, "auto-"), id)
		assert.False(t, seen[id], "duplicate ephemeral ID %q", id)
		seen[id] = true
	}
}

func TestIsEphemeralSessionID(t *testing.T) {
	assert.True(t, IsEphemeralSessionID(NewEphemeralSessionID("auto"), "auto"))
	assert.False(t, IsEphemeralSessionID(NewUserSessionID(), "auto"))
	assert.False(t, IsEphemeralSessionID("autonomy-discussion", "auto"))
}
