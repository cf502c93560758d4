package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	loc, err := ParsePath("1/2/3")
	require.NoError(t, err)
	assert.Equal(t, Location{GuildID: "1", ChannelID: "2", MessageID: "3"}, loc)
	assert.Equal(t, "1/2/3", loc.Path())
	assert.Equal(t, "https://discord.com/channels/1/2/3", loc.JumpURL())

	for _, bad := range []string{"", "1/2", "1//3", "1/2/3/4"} {
		_, err := ParsePath(bad)
		assert.True(t, errors.Is(err, ErrInvalidPath), bad)
	}
}

func TestGiveaway_Validate(t *testing.T) {
	g := &Giveaway{ID: "3", Winners: 1, Path: "1/2/3"}
	assert.NoError(t, g.Validate())

	g.Winners = 0
	assert.ErrorIs(t, g.Validate(), ErrInvalidWinnersCount)

	g = &Giveaway{Winners: 1, Path: "1/2/3"}
	assert.ErrorIs(t, g.Validate(), ErrMissingID)
}

func TestGiveaway_Archived(t *testing.T) {
	g := &Giveaway{ID: "3", Ending: 100, Winners: 2, Path: "1/2/3"}
	ended := time.Unix(200, 0)

	a := g.Archived(OutcomeCompleted, []string{"u1"}, ended)

	assert.Equal(t, OutcomeCompleted, a.Outcome)
	assert.Equal(t, []string{"u1"}, a.WinnerIDs)
	assert.Equal(t, int64(200), a.EndedAt)
	assert.Equal(t, int64(100), a.Ending)
	assert.Empty(t, g.Outcome, "original is untouched")
}

func TestOutcome_IsTerminal(t *testing.T) {
	for _, o := range []Outcome{OutcomeCompleted, OutcomeNoWinner, OutcomeNotFound, OutcomeError} {
		assert.True(t, o.IsTerminal(), o)
	}
	for _, o := range []Outcome{OutcomeDuplicate, OutcomeSuperseded, OutcomeAborted, OutcomeAlreadyEnded, OutcomeRetry} {
		assert.False(t, o.IsTerminal(), o)
	}
}

func TestHolder(t *testing.T) {
	h := NewContactHolder("<@42>", "alice")
	assert.Equal(t, "Contact alice to claim your prize", h.Display())
	assert.False(t, h.IsHost())
	assert.Equal(t, "Item Holder:", h.Label())
	assert.Equal(t, "42", h.UserID())

	h = NewHostHolder("<@!7>", "bob")
	assert.Equal(t, "Hosted by: bob", h.Display())
	assert.True(t, h.IsHost())
	assert.Equal(t, "Hosted by:", h.Label())
	assert.Equal(t, "7", h.UserID())

	h = Holder{Tag: "carol", String: "Hosted by: carol"}
	assert.Equal(t, "carol", h.Contact())
	assert.Empty(t, h.UserID())
}

func TestExtractPrize(t *testing.T) {
	prize, row, ok := ExtractPrize("PC | R4005\nWeapon Slots\n\n__Restrictions:__\nNone\n\nDonated By: someone\n__Contact someone to claim your prize__")
	require.True(t, ok)
	assert.Equal(t, "Weapon Slots", prize)
	assert.Equal(t, "R4005", row)

	prize, row, ok = ExtractPrize("Orokin Reactor\n\nContact: bob")
	require.True(t, ok)
	assert.Equal(t, "Orokin Reactor", prize)
	assert.Empty(t, row)

	_, _, ok = ExtractPrize("just some text")
	assert.False(t, ok)
}

func TestThreadName(t *testing.T) {
	assert.Equal(t, "R3764 | Slots | alice | 42", ThreadName("R3764", "Slots", "alice", "42"))
	assert.Equal(t, "Slots | alice | 42", ThreadName("", "Slots", "alice", "42"))

	long := ThreadName("", strings.Repeat("x", 200), "alice", "42")
	assert.LessOrEqual(t, len([]rune(long)), 100)
	assert.True(t, strings.HasSuffix(long, " | 42"))
}
