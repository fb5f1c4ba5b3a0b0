package listcache

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listbridge/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../docs/schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

func TestSaveAndLatest(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	entries := []models.Entry{
		{Title: "Monster", SourceID: 19, Origin: models.PlatformMAL},
		{Title: "Berserk", SourceID: 2, Origin: models.PlatformMAL},
	}

	id, err := repo.Save(ctx, models.PlatformMAL, "alice", models.KindManga, entries)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := repo.Latest(ctx, models.PlatformMAL, "alice", models.KindManga)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "alice", got.Username)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "Monster", got.Entries[0].Title)
}

func TestLatestPicksNewestSnapshot(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Save(ctx, models.PlatformAniList, "bob", models.KindAnime,
		[]models.Entry{{Title: "old"}})
	require.NoError(t, err)
	newest, err := repo.Save(ctx, models.PlatformAniList, "bob", models.KindAnime,
		[]models.Entry{{Title: "new"}})
	require.NoError(t, err)

	got, err := repo.Latest(ctx, models.PlatformAniList, "bob", models.KindAnime)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newest, got.ID)
	assert.Equal(t, "new", got.Entries[0].Title)
}

func TestLatestMissesAreNil(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	got, err := repo.Latest(context.Background(), models.PlatformMAL, "nobody", models.KindAnime)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrune(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	_, err := repo.Save(ctx, models.PlatformMAL, "alice", models.KindAnime,
		[]models.Entry{{Title: "x"}})
	require.NoError(t, err)

	// backdate the row past the retention window
	_, err = db.Exec(`UPDATE list_snapshots SET fetched_at = ?`,
		time.Now().UTC().Add(-48*time.Hour))
	require.NoError(t, err)

	n, err := repo.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.Latest(ctx, models.PlatformMAL, "alice", models.KindAnime)
	require.NoError(t, err)
	assert.Nil(t, got)
}
