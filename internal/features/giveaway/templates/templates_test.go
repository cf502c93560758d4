package templates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/features/giveaway/models"
)

func TestRunningGiveaway(t *testing.T) {
	holder := models.NewContactHolder("<@1>", "alice")
	e, err := RunningGiveaway(1700000000, 3, holder, "Slots", "desc")
	require.NoError(t, err)

	assert.Equal(t, ColorGreen, e.Color)
	assert.Equal(t, "3 winners | Contact alice to claim your prize", e.Footer)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, "Item Holder:", e.Fields[0].Name)
	assert.Equal(t, "<@1>", e.Fields[0].Value)
	assert.Equal(t, FieldEnding, e.Fields[1].Name)
	assert.Contains(t, e.Fields[1].Value, "<t:1700000000:R>")

	_, err = RunningGiveaway(1, 1, holder, "", "")
	assert.ErrorIs(t, err, ErrEmptyAnnouncement)
}

func TestMarkEnded(t *testing.T) {
	e, err := RunningGiveaway(1, 1, models.NewHostHolder("<@1>", "h"), "t", "")
	require.NoError(t, err)

	ended := MarkEnded(e)
	assert.Zero(t, ended.Color)
	assert.Equal(t, -1, ended.Field(FieldEnding))
	assert.Equal(t, 1, ended.Field(FieldEnded))
	assert.Equal(t, 1, e.Field(FieldEnding), "input is not modified")
}

func TestResult(t *testing.T) {
	p := ResultParams{
		WinnerMentions: []string{"<@1>", "<@2>"},
		Title:          "Slots",
		Holder:         models.NewHostHolder("<@9>", "host"),
		JumpURL:        "https://discord.com/channels/1/2/3",
	}
	msg := Result(p)
	require.Len(t, msg.Embeds, 1)
	assert.Empty(t, msg.Content)
	assert.Equal(t, "Giveaway result", msg.Embeds[0].Title)
	assert.Equal(t, "<@1>\n<@2>", msg.Embeds[0].Fields[1].Value)

	p.Reroll = true
	p.MentionWinners = true
	msg = Result(p)
	assert.Equal(t, "Giveaway was rerolled", msg.Embeds[0].Title)
	assert.Equal(t, ColorDarkBlue, msg.Embeds[0].Color)
	assert.Equal(t, "<@1> <@2>", msg.Content)
}

func TestFromError(t *testing.T) {
	e := FromError(apperrors.NewGiveawayNotFoundError("123"))
	assert.Equal(t, "Error", e.Title)
	assert.Contains(t, e.Description, "No giveaway with ID `123` found")

	e = FromError(apperrors.New(apperrors.ErrCodeMemberNotFound, "no such member"))
	assert.Equal(t, "Warning", e.Title)

	e = FromError(apperrors.NewDatabaseError("find", errors.New("boom")))
	assert.Equal(t, "Internal error, report submitted.", e.Description)

	e = FromError(errors.New("plain"))
	assert.Equal(t, "Internal error, report submitted.", e.Description)
}

func TestWinnerGuide(t *testing.T) {
	e := WinnerGuide("Slots", "", "link")
	assert.Equal(t, "You won: Slots", e.Title)
	assert.Contains(t, e.Description, "[Jump to giveaway](link)")

	e = WinnerGuide("", "desc", "link")
	assert.Contains(t, e.Description, "**desc**")
}

func TestModmailGreeting(t *testing.T) {
	assert.Equal(t, "<@u1> <@&r1> <@&r2>\nDescribe your issue here", ModmailGreeting("u1", []string{"r1", "r2"}))
	assert.Equal(t, "<@u1>\nDescribe your issue here", ModmailGreeting("u1", nil))
	assert.Equal(t, ContactStaffTitle, ContactStaff("📩").Title)
}
