package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/repository"
)

func openTestDB(t *testing.T) (repository.GiveawayRepository, repository.DisqualificationRepository) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "giveaways.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteGiveawayRepository(db), NewSQLiteDisqualificationRepository(db)
}

func sampleGiveaway(id string) *models.Giveaway {
	return &models.Giveaway{
		ID:      id,
		Ending:  1700000000,
		Winners: 1,
		Holder:  models.NewHostHolder("<@1>", "host"),
		Path:    "1/2/" + id,
	}
}

func TestGiveawayRepository_Lifecycle(t *testing.T) {
	repo, _ := openTestDB(t)
	ctx := context.Background()

	g := sampleGiveaway("10")
	require.NoError(t, repo.Insert(ctx, g))
	assert.True(t, errors.Is(repo.Insert(ctx, g), repository.ErrDuplicateKey))

	got, err := repo.Find(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	g.Ending = 42
	require.NoError(t, repo.Replace(ctx, g))
	got, err = repo.Find(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Ending)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "10"))
	require.NoError(t, repo.Delete(ctx, "10"))
	_, err = repo.Find(ctx, "10")
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound))
}

func TestGiveawayRepository_ReplaceRequiresActive(t *testing.T) {
	repo, _ := openTestDB(t)
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

func TestGiveawayRepository_MoveToArchiveOverwrites(t *testing.T) {
	repo, _ := openTestDB(t)
	ctx := context.Background()

	g := sampleGiveaway("11")
	require.NoError(t, repo.Insert(ctx, g))
	require.NoError(t, repo.InsertArchive(ctx, g))

	require.NoError(t, repo.MoveToArchive(ctx, g.Archived(models.OutcomeNoWinner, nil, g.EndingTime())))

	_, err := repo.Find(ctx, "11")
	assert.True(t, errors.Is(err, repository.ErrGiveawayNotFound))

	got, err := repo.FindArchived(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNoWinner, got.Outcome)

	archived, err := repo.FindAllArchived(ctx)
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	require.NoError(t, repo.Ping(ctx))
}

func TestDisqualificationRepository(t *testing.T) {
	_, repo := openTestDB(t)
	ctx := context.Background()

	dq := &models.Disqualification{ID: "u", Ending: 5}
	require.NoError(t, repo.Insert(ctx, dq))
	assert.True(t, errors.Is(repo.Insert(ctx, dq), repository.ErrDuplicateKey))

	dq.Ending = 9
	require.NoError(t, repo.Replace(ctx, dq))
	got, err := repo.Find(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Ending)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "u"))
	_, err = repo.Find(ctx, "u")
	assert.True(t, errors.Is(err, repository.ErrDisqualificationNotFound))
}
