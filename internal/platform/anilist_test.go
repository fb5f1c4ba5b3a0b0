package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listbridge/internal/ratelimit"
	"listbridge/pkg/models"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newTestAniList(token, baseURL string) *AniList {
	a := NewAniList(token, ratelimit.New())
	a.BaseURL = baseURL
	return a
}

func TestAniListFetchListFlattens(t *testing.T) {
	var gotReq graphqlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, `{"data": {"MediaListCollection": {"lists": [
			{"entries": [{
				"status": "CURRENT",
				"score": 8,
				"progress": 12,
				"startedAt": {"year": 2024, "month": 1, "day": 5},
				"completedAt": {"year": 0, "month": 0, "day": 0},
				"notes": "weekly",
				"media": {"id": 16498, "title": {"romaji": "Shingeki no Kyojin", "english": "Attack on Titan"}, "episodes": 25}
			}]},
			{"entries": [{
				"status": "COMPLETED",
				"score": 10,
				"progress": 26,
				"startedAt": {"year": 2023, "month": 9},
				"completedAt": {"year": 2023, "month": 10, "day": 1},
				"media": {"id": 1, "title": {"english": "Cowboy Bebop"}, "episodes": 26}
			}]}
		]}}}`)
	}))
	defer srv.Close()

	a := newTestAniList("", srv.URL)
	entries, err := a.FetchList(context.Background(), "someone", models.KindAnime)
	require.NoError(t, err)

	assert.Equal(t, "someone", gotReq.Variables["username"])
	assert.Equal(t, "ANIME", gotReq.Variables["type"])

	require.Len(t, entries, 2)
	first := entries[0]
	assert.Equal(t, "Shingeki no Kyojin", first.Title) // romaji preferred
	assert.Equal(t, 16498, first.SourceID)
	assert.Equal(t, models.StatusWatching, first.Status)
	assert.Equal(t, "2024-01-05", first.StartDate)
	assert.Empty(t, first.FinishDate) // zero year means unset
	assert.Equal(t, models.PlatformAniList, first.Origin)

	second := entries[1]
	assert.Equal(t, "Cowboy Bebop", second.Title) // english fallback
	assert.Equal(t, models.StatusCompleted, second.Status)
	assert.Equal(t, "2023-09-01", second.StartDate) // missing day defaults to 1
	assert.Equal(t, "2023-10-01", second.FinishDate)
}

func TestAniListFetchListEmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"MediaListCollection": {"lists": []}}}`)
	}))
	defer srv.Close()

	a := newTestAniList("", srv.URL)
	entries, err := a.FetchList(context.Background(), "newuser", models.KindAnime)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestAniListSearchByTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Variables["search"] == "Berserk" {
			fmt.Fprint(w, `{"data": {"Media": {"id": 30013}}}`)
			return
		}
		fmt.Fprint(w, `{"data": {"Media": null}}`)
	}))
	defer srv.Close()

	a := newTestAniList("", srv.URL)

	id, err := a.SearchByTitle(context.Background(), "Berserk", models.KindManga)
	require.NoError(t, err)
	assert.Equal(t, 30013, id)

	_, err = a.SearchByTitle(context.Background(), "does not exist", models.KindManga)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAniListUpsertEntry(t *testing.T) {
	var gotReq graphqlRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, `{"data": {"SaveMediaListEntry": {"id": 99}}}`)
	}))
	defer srv.Close()

	a := newTestAniList("token-abc", srv.URL)
	entry := models.Entry{
		Title:     "Monster",
		Status:    models.StatusCompleted,
		Score:     10,
		Progress:  74,
		StartDate: "2022-03-01",
		Notes:     "rewatch",
	}

	require.NoError(t, a.UpsertEntry(context.Background(), 19, entry, models.KindAnime))

	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.EqualValues(t, 19, gotReq.Variables["mediaId"])
	assert.Equal(t, "COMPLETED", gotReq.Variables["status"])
	assert.EqualValues(t, 10, gotReq.Variables["score"])
	assert.EqualValues(t, 74, gotReq.Variables["progress"])
	assert.Equal(t, "rewatch", gotReq.Variables["notes"])

	started, ok := gotReq.Variables["startedAt"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2022, started["year"])
	assert.EqualValues(t, 3, started["month"])

	_, hasCompleted := gotReq.Variables["completedAt"]
	assert.False(t, hasCompleted)
}

func TestAniListUpsertEntryRequiresToken(t *testing.T) {
	a := newTestAniList("", "http://unused.invalid")
	err := a.UpsertEntry(context.Background(), 1, models.Entry{}, models.KindAnime)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestAniListGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": null, "errors": [{"message": "User not found"}]}`)
	}))
	defer srv.Close()

	a := newTestAniList("", srv.URL)
	_, err := a.FetchList(context.Background(), "ghost", models.KindAnime)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User not found")
}

func TestAniListRateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := newTestAniList("", srv.URL)
	_, err := a.FetchList(context.Background(), "busy", models.KindAnime)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestFuzzyDateRoundTrip(t *testing.T) {
	assert.Equal(t, "2024-01-05", formatFuzzyDate(fuzzyDate{Year: 2024, Month: 1, Day: 5}))
	assert.Equal(t, "2024-01-01", formatFuzzyDate(fuzzyDate{Year: 2024}))
	assert.Empty(t, formatFuzzyDate(fuzzyDate{}))

	d := parseFuzzyDate("2024-01-05")
	require.NotNil(t, d)
	assert.Equal(t, fuzzyDate{Year: 2024, Month: 1, Day: 5}, *d)

	assert.Nil(t, parseFuzzyDate(""))
	assert.Nil(t, parseFuzzyDate("not a date"))
}
