package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listbridge/internal/ratelimit"
	"listbridge/pkg/models"
)

func newTestMAL(token string, jikanURL, malURL string) *MAL {
	m := NewMAL(token, ratelimit.New())
	if jikanURL != "" {
		m.JikanBaseURL = jikanURL
	}
	if malURL != "" {
		m.BaseURL = malURL
	}
	return m
}

func TestMALFetchListPaginates(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, r.URL.Path+"?page="+page)

		if page == "1" {
			fmt.Fprint(w, `{
				"data": [{
					"status": "watching",
					"score": 8,
					"episodes_watched": 12,
					"watch_start_date": "2024-01-05T00:00:00+00:00",
					"anime": {"mal_id": 16498, "title": "Shingeki no Kyojin", "episodes": 25}
				}],
				"pagination": {"has_next_page": true}
			}`)
			return
		}
		fmt.Fprint(w, `{
			"data": [{
				"status": "completed",
				"score": 10,
				"episodes_watched": 26,
				"watch_end_date": "2023-10-01T00:00:00+00:00",
				"anime": {"mal_id": 1, "title": "Cowboy Bebop", "episodes": 26}
			}],
			"pagination": {"has_next_page": false}
		}`)
	}))
	defer srv.Close()

	m := newTestMAL("", srv.URL, "")
	entries, err := m.FetchList(context.Background(), "someone", models.KindAnime)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/users/someone/animelist?page=1",
		"/users/someone/animelist?page=2",
	}, pages)

	require.Len(t, entries, 2)
	first := entries[0]
	assert.Equal(t, "Shingeki no Kyojin", first.Title)
	assert.Equal(t, 16498, first.SourceID)
	assert.Equal(t, models.StatusWatching, first.Status)
	assert.Equal(t, 12, first.Progress)
	assert.Equal(t, 25, first.TotalUnits)
	assert.Equal(t, "2024-01-05", first.StartDate)
	assert.Equal(t, models.PlatformMAL, first.Origin)

	assert.Equal(t, models.StatusCompleted, entries[1].Status)
	assert.Equal(t, "2023-10-01", entries[1].FinishDate)
}

func TestMALFetchListManga(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/mangalist")
		fmt.Fprint(w, `{
			"data": [{
				"status": "reading",
				"score": 9,
				"chapters_read": 150,
				"volumes_read": 20,
				"manga": {"mal_id": 642, "title": "Vinland Saga", "chapters": 220}
			}],
			"pagination": {"has_next_page": false}
		}`)
	}))
	defer srv.Close()

	m := newTestMAL("", srv.URL, "")
	entries, err := m.FetchList(context.Background(), "reader", models.KindManga)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusWatching, entries[0].Status)
	assert.Equal(t, 150, entries[0].Progress)
	assert.Equal(t, 20, entries[0].ProgressVolumes)
	assert.Equal(t, 220, entries[0].TotalUnits)
}

func TestMALFetchListUserNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := newTestMAL("", srv.URL, "")
	_, err := m.FetchList(context.Background(), "ghost", models.KindAnime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMALFetchListEmptyUsername(t *testing.T) {
	m := newTestMAL("", "", "")
	_, err := m.FetchList(context.Background(), "  ", models.KindAnime)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username required")
}

func TestMALUpsertEntry(t *testing.T) {
	var gotPath, gotAuth string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		fmt.Fprint(w, `{"status": "watching"}`)
	}))
	defer srv.Close()

	m := newTestMAL("token-123", "", srv.URL)
	entry := models.Entry{
		Title:    "Monster",
		Status:   models.StatusWatching,
		Score:    9,
		Progress: 30,
		Notes:    "great",
	}

	err := m.UpsertEntry(context.Background(), 19, entry, models.KindAnime)
	require.NoError(t, err)

	assert.Equal(t, "/anime/19/my_list_status", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "watching", gotForm["status"][0])
	assert.Equal(t, "9", gotForm["score"][0])
	assert.Equal(t, "30", gotForm["num_watched_episodes"][0])
	assert.Equal(t, "great", gotForm["comments"][0])
}

func TestMALUpsertEntryMangaFields(t *testing.T) {
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	m := newTestMAL("tok", "", srv.URL)
	entry := models.Entry{
		Status:          models.StatusWatching,
		Progress:        100,
		ProgressVolumes: 11,
	}

	require.NoError(t, m.UpsertEntry(context.Background(), 2, entry, models.KindManga))
	assert.Equal(t, "reading", gotForm["status"][0])
	assert.Equal(t, "100", gotForm["num_chapters_read"][0])
	assert.Equal(t, "11", gotForm["num_volumes_read"][0])
	assert.Empty(t, gotForm["num_watched_episodes"])
}

func TestMALUpsertEntryRequiresToken(t *testing.T) {
	m := newTestMAL("", "", "")
	err := m.UpsertEntry(context.Background(), 1, models.Entry{}, models.KindAnime)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestMALSearchUnsupported(t *testing.T) {
	m := newTestMAL("tok", "", "")
	assert.False(t, m.CanSearch())

	_, err := m.SearchByTitle(context.Background(), "anything", models.KindAnime)
	assert.ErrorIs(t, err, ErrSearchUnsupported)
}

func TestStatusErrorTaxonomy(t *testing.T) {
	assert.NoError(t, statusError("mal", http.StatusOK))
	assert.NoError(t, statusError("mal", http.StatusCreated))
	assert.ErrorIs(t, statusError("mal", http.StatusUnauthorized), ErrAuthRequired)
	assert.ErrorIs(t, statusError("mal", http.StatusForbidden), ErrAuthRequired)
	assert.ErrorIs(t, statusError("mal", http.StatusNotFound), ErrNotFound)
	assert.ErrorIs(t, statusError("mal", http.StatusTooManyRequests), ErrRateLimited)
	assert.Error(t, statusError("mal", http.StatusInternalServerError))
}
