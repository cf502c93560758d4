package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/metrics"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
	"giveaway-bot/internal/features/giveaway/repository/sqlite"
	"giveaway-bot/internal/platform/chat"
	"giveaway-bot/internal/platform/chat/chattest"
)

type giveawaySet map[string]bool

func (g giveawaySet) IsGiveawayMessage(_ context.Context, id string) (bool, error) {
	return g[id], nil
}

func newTestService(t *testing.T) (*Service, *chattest.Platform, repository.DisqualificationRepository) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewSQLiteDisqualificationRepository(db)
	platform := chattest.New()
	platform.AddMember(chat.Member{User: chat.User{ID: "u1", Username: "alice"}, GuildID: "g1"})

	svc := NewService(repo, platform, giveawaySet{"giveaway": true}, metrics.NewCollector("test"), Config{
		GuildID:         "g1",
		RoleID:          "dq",
		Interval:        10 * time.Millisecond,
		LogChannelID:    "log",
		ModLogChannelID: "modlog",
		EntryEmoji:      "🎉",
	})
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return svc, platform, repo
}

func TestDisqualify(t *testing.T) {
	svc, platform, repo := newTestService(t)

	res, err := svc.Disqualify(context.Background(), DisqualifyInput{
		GuildID: "g1", MemberRef: "<@u1>", Duration: "7d", Reason: "Entering R0000 without requirements", ModeratorTag: "mod",
	})
	require.NoError(t, err)
	assert.False(t, res.Overwritten)
	assert.Equal(t, int64(1_700_000_000+7*86400), res.Record.Ending)
	assert.Contains(t, platform.Roles("u1"), "dq")

	stored, err := repo.Find(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, res.Record.Ending, stored.Ending)

	modlog := platform.SentTo("modlog")
	require.Len(t, modlog, 1)
	assert.Contains(t, modlog[0].Content, "<@u1> has been disqualified until <t:")
	assert.Contains(t, modlog[0].Content, "Entering R0000")
}

func TestDisqualify_OverwritesExisting(t *testing.T) {
	svc, platform, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Disqualify(ctx, DisqualifyInput{MemberRef: "u1", Duration: "1d"})
	require.NoError(t, err)
	res, err := svc.Disqualify(ctx, DisqualifyInput{MemberRef: "u1", Duration: "2d", Silent: true})
	require.NoError(t, err)
	assert.True(t, res.Overwritten)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(1_700_000_000+2*86400), all[0].Ending)
	assert.Len(t, platform.SentTo("modlog"), 1, "silent disqualification is not logged")
}

func TestDisqualify_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Disqualify(ctx, DisqualifyInput{MemberRef: "ghost", Duration: "1d"})
	assert.Equal(t, apperrors.ErrCodeMemberNotFound, apperrors.CodeOf(err))

	_, err = svc.Disqualify(ctx, DisqualifyInput{MemberRef: "u1", Duration: "1x"})
	assert.Equal(t, apperrors.ErrCodeMalformedDuration, apperrors.CodeOf(err))

	_, err = svc.Disqualify(ctx, DisqualifyInput{Duration: "1d"})
	assert.Equal(t, apperrors.ErrCodeMissingArgument, apperrors.CodeOf(err))
}

func TestProcessExpired(t *testing.T) {
	svc, platform, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Disqualify(ctx, DisqualifyInput{MemberRef: "u1", Duration: "10s", Silent: true})
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, &models.Disqualification{ID: "u2", Ending: 1_700_000_000 + 3600}))

	n, err := svc.ProcessExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing has expired yet")

	svc.now = func() time.Time { return time.Unix(1_700_000_100, 0) }
	n, err = svc.ProcessExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NotContains(t, platform.Roles("u1"), "dq")
	_, err = repo.Find(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrDisqualificationNotFound)
	_, err = repo.Find(ctx, "u2")
	assert.NoError(t, err)

	log := platform.SentTo("log")
	require.Len(t, log, 1)
	assert.Equal(t, "User <@u1> disqualification removed", log[0].Content)
}

func TestProcessExpired_RoleFailureStillDeletes(t *testing.T) {
	svc, platform, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, &models.Disqualification{ID: "gone", Ending: 1}))
	platform.RemoveRoleErr = errors.New("unknown member")

	n, err := svc.ProcessExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.Find(ctx, "gone")
	assert.ErrorIs(t, err, repository.ErrDisqualificationNotFound)

	log := platform.SentTo("log")
	require.Len(t, log, 1)
	assert.Contains(t, log[0].Embeds[0].Description, "Failed to remove disqualification role from <@gone>")
}

func TestTimer_StartStop(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, &models.Disqualification{ID: "u1", Ending: 1}))

	svc.Start()
	require.Eventually(t, func() bool {
		_, err := repo.Find(ctx, "u1")
		return errors.Is(err, repository.ErrDisqualificationNotFound)
	}, 2*time.Second, 10*time.Millisecond)
	svc.Stop()
}

func TestCheckReaction(t *testing.T) {
	svc, platform, _ := newTestService(t)
	ctx := context.Background()
	entry := chat.Reaction{GuildID: "g1", ChannelID: "c1", MessageID: "giveaway", UserID: "u1", Emoji: "🎉"}

	removed, err := svc.CheckReaction(ctx, entry)
	require.NoError(t, err)
	assert.False(t, removed, "member is not disqualified")

	require.NoError(t, platform.AddRole(ctx, "g1", "u1", "dq"))
	removed, err = svc.CheckReaction(ctx, entry)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"giveaway/u1"}, platform.RemovedReactions())
	require.Len(t, platform.SentTo("log"), 1)
	assert.Equal(t, "Reaction removed", platform.SentTo("log")[0].Embeds[0].Title)

	other := entry
	other.MessageID = "chatter"
	removed, err = svc.CheckReaction(ctx, other)
	require.NoError(t, err)
	assert.False(t, removed, "only giveaway messages are gated")

	other = entry
	other.Emoji = "👍"
	removed, _ = svc.CheckReaction(ctx, other)
	assert.False(t, removed)

	withRoles := entry
	withRoles.UserID = "stranger"
	withRoles.RoleIDs = []string{"dq"}
	removed, err = svc.CheckReaction(ctx, withRoles)
	require.NoError(t, err)
	assert.True(t, removed, "roles carried on the event are used directly")
}
