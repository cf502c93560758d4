package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleGiveaway(id string) *models.Giveaway {
	return &models.Giveaway{
		ID:      id,
		Ending:  1700000000,
		Winners: 2,
		Holder:  models.NewContactHolder("<@9>", "holder"),
		Path:    "1/2/" + id,
		Prize:   "Weapon Slots",
		Row:     "R1234",
	}
}

func TestGiveawayRepository_InsertFind(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisGiveawayRepository(client)
	ctx := context.Background()

	g := sampleGiveaway("100")
	require.NoError(t, repo.Insert(ctx, g))

	got, err := repo.Find(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	err = repo.Insert(ctx, g)
	assert.True(t, errors.Is(err, repository.ErrDuplicateKey))

	_, err = repo.Find(ctx, "missing")
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound))
}

func TestGiveawayRepository_ReplaceDeleteFindAll(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisGiveawayRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleGiveaway("1")))
	require.NoError(t, repo.Insert(ctx, sampleGiveaway("2")))

	g := sampleGiveaway("1")
	g.Ending = 5
	require.NoError(t, repo.Replace(ctx, g))

	got, err := repo.Find(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Ending)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, "1"))
	require.NoError(t, repo.Delete(ctx, "1"), "deleting twice is a no-op")

	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2", all[0].ID)
}

func TestGiveawayRepository_ReplaceRequiresActive(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisGiveawayRepository(client)
	ctx := context.Background()

	err := repo.Replace(ctx, sampleGiveaway("missing"))
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound))
	_, err = repo.Find(ctx, "missing")
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound))

	g := sampleGiveaway("7")
	require.NoError(t, repo.Insert(ctx, g))
	require.NoError(t, repo.MoveToArchive(ctx, g))

	g.Ending = 99
	err = repo.Replace(ctx, g)
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound))

	_, err = repo.Find(ctx, "7")
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound), "archived giveaway must not be revived")
	archived, err := repo.FindArchived(ctx, "7")
	require.NoError(t, err)
	assert.NotEqual(t, int64(99), archived.Ending)
}

func TestGiveawayRepository_MoveToArchive(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisGiveawayRepository(client)
	ctx := context.Background()

	g := sampleGiveaway("7")
	require.NoError(t, repo.Insert(ctx, g))
	require.NoError(t, repo.InsertArchive(ctx, g), "a stale archive copy from an interrupted move")

	archived := g.Clone()
	archived.Outcome = models.OutcomeCompleted
	archived.WinnerIDs = []string{"42"}
	require.NoError(t, repo.MoveToArchive(ctx, archived))

	_, err := repo.Find(ctx, "7")
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound))

	got, err := repo.FindArchived(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCompleted, got.Outcome)
	assert.Equal(t, []string{"42"}, got.WinnerIDs)

	all, err := repo.FindAllArchived(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.True(t, errors.Is(repo.InsertArchive(ctx, g), repository.ErrDuplicateKey))
}

func TestGiveawayRepository_StoreDown(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewRedisGiveawayRepository(client)
	ctx := context.Background()

	mr.Close()

	_, err := repo.Find(ctx, "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrGiveawayNotFound))
	assert.Error(t, repo.Ping(ctx))
}

func TestDisqualificationRepository(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewRedisDisqualificationRepository(client)
	ctx := context.Background()

	dq := &models.Disqualification{ID: "u1", Ending: 10, GuildID: "g", Reason: "spam"}
	require.NoError(t, repo.Insert(ctx, dq))
	assert.True(t, errors.Is(repo.Insert(ctx, dq), repository.ErrDuplicateKey))

	dq.Ending = 20
	require.NoError(t, repo.Replace(ctx, dq))

	got, err := repo.Find(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.Ending)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.Find(ctx, "u1")
	assert.True(t, errors.Is(err, repository.ErrDisqualificationNotFound))
}
