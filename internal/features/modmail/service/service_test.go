package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/metrics"
	"giveaway-bot/internal/features/giveaway/templates"
	"giveaway-bot/internal/platform/chat"
	"giveaway-bot/internal/platform/chat/chattest"
)

func newService(t *testing.T, channelID string) (*Service, *chattest.Platform) {
	t.Helper()
	p := chattest.New()
	p.AddMember(chat.Member{User: chat.User{ID: "u1", Username: "alice"}})
	svc := NewService(p, metrics.NewCollector("test"), Config{
		ChannelID:  channelID,
		Emoji:      "📩",
		ModRoleIDs: []string{"r1", "r2"},
	})
	return svc, p
}

func TestPostThenReactOpensTicket(t *testing.T) {
	svc, p := newService(t, "staff")
	ctx := context.Background()

	msg, err := svc.Post(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, templates.ContactStaffTitle, msg.Embeds[0].Title)

	handled, err := svc.HandleReaction(ctx, chat.Reaction{
		GuildID: "g1", ChannelID: "c1", MessageID: msg.ID, UserID: "u1", Emoji: "📩",
	})
	require.NoError(t, err)
	assert.True(t, handled)

	tickets := p.Tickets()
	require.Len(t, tickets, 1)
	assert.Equal(t, "staff", tickets[0].ParentID)
	assert.Equal(t, "alice | u1", tickets[0].Name)
	assert.Equal(t, "u1", tickets[0].UserID)
	assert.Equal(t, []string{"u1"}, tickets[0].Members)
	assert.Equal(t, "<@u1> <@&r1> <@&r2>\nDescribe your issue here", tickets[0].Message.Content)
	assert.Contains(t, p.RemovedReactions(), msg.ID+"/u1")
}

func TestHandleReaction_UnknownMemberUsesID(t *testing.T) {
	svc, p := newService(t, "staff")
	msg, err := svc.Post(context.Background(), "c1")
	require.NoError(t, err)

	handled, err := svc.HandleReaction(context.Background(), chat.Reaction{
		GuildID: "g1", ChannelID: "c1", MessageID: msg.ID, UserID: "u9", Emoji: "📩",
	})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, p.Tickets(), 1)
	assert.Equal(t, "u9 | u9", p.Tickets()[0].Name)
}

func TestHandleReaction_Ignored(t *testing.T) {
	svc, p := newService(t, "staff")
	ctx := context.Background()
	msg, err := svc.Post(ctx, "c1")
	require.NoError(t, err)
	p.PutMessage(chat.Message{
		ID: "other", ChannelID: "c1", Author: chat.User{ID: "u2"},
		Embeds: []chat.Embed{templates.ContactStaff("📩")},
	})

	cases := map[string]chat.Reaction{
		"other emoji":       {GuildID: "g1", ChannelID: "c1", MessageID: msg.ID, UserID: "u1", Emoji: "🎉"},
		"bot reaction":      {GuildID: "g1", ChannelID: "c1", MessageID: msg.ID, UserID: "bot", Emoji: "📩"},
		"missing message":   {GuildID: "g1", ChannelID: "c1", MessageID: "gone", UserID: "u1", Emoji: "📩"},
		"not posted by bot": {GuildID: "g1", ChannelID: "c1", MessageID: "other", UserID: "u1", Emoji: "📩"},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			handled, err := svc.HandleReaction(ctx, r)
			require.NoError(t, err)
			assert.False(t, handled)
		})
	}
	assert.Empty(t, p.Tickets())
}

func TestModmailDisabled(t *testing.T) {
	svc, p := newService(t, "")

	_, err := svc.Post(context.Background(), "c1")
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
	assert.Empty(t, p.SentTo("c1"))

	handled, err := svc.HandleReaction(context.Background(), chat.Reaction{
		GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1", Emoji: "📩",
	})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestHandleReaction_TicketFailure(t *testing.T) {
	svc, p := newService(t, "staff")
	msg, err := svc.Post(context.Background(), "c1")
	require.NoError(t, err)
	p.TicketErr = errors.New("thread limit reached")

	handled, err := svc.HandleReaction(context.Background(), chat.Reaction{
		GuildID: "g1", ChannelID: "c1", MessageID: msg.ID, UserID: "u1", Emoji: "📩",
	})
	assert.True(t, handled)
	assert.ErrorContains(t, err, "thread limit reached")
}
