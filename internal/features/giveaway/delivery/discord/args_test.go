package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	name, rest, ok := ParseCommand("g!start 10s ; 1w ; Nitro", "g!")
	assert.True(t, ok)
	assert.Equal(t, "start", name)
	assert.Equal(t, "10s ; 1w ; Nitro", rest)

	name, rest, ok = ParseCommand("g! END 123", "g!")
	assert.True(t, ok)
	assert.Equal(t, "end", name)
	assert.Equal(t, "123", rest)

	name, _, ok = ParseCommand("g!status", "g!")
	assert.True(t, ok)
	assert.Equal(t, "status", name)

	_, _, ok = ParseCommand("hello g!start", "g!")
	assert.False(t, ok)
	_, _, ok = ParseCommand("g!", "g!")
	assert.False(t, ok)
}

func TestSplitArgs(t *testing.T) {
	args := SplitArgs("10s ; 1w ; PC | R3764\nVulkar vexi-critacan ; ", ";", 5, false)
	assert.Equal(t, []string{"10s", "1w", "PC | R3764\nVulkar vexi-critacan", "", ""}, args)

	assert.Equal(t, []string{"", ""}, SplitArgs("   ", ";", 2, false))
	assert.Equal(t, []string{"a", "b"}, SplitArgs("a;b;c", ";", 2, false))
	assert.Equal(t, []string{"a", "b; c"}, SplitArgs("a;b;c", ";", 2, true))
}
