package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listbridge/pkg/models"
)

func TestExtractIDFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform models.Platform
		want     int
	}{
		{"mal anime", "https://myanimelist.net/anime/5114/Fullmetal_Alchemist__Brotherhood", models.PlatformMAL, 5114},
		{"mal manga", "https://myanimelist.net/manga/2/Berserk", models.PlatformMAL, 2},
		{"anilist anime", "https://anilist.co/anime/21/ONE-PIECE/", models.PlatformAniList, 21},
		{"anilist manga", "https://anilist.co/manga/30013", models.PlatformAniList, 30013},
		{"no scheme", "myanimelist.net/anime/1535", models.PlatformMAL, 1535},
		{"wrong platform", "https://myanimelist.net/anime/5114", models.PlatformAniList, 0},
		{"empty", "", models.PlatformMAL, 0},
		{"not a media url", "https://myanimelist.net/profile/someone", models.PlatformMAL, 0},
		{"unknown platform", "https://myanimelist.net/anime/5114", models.PlatformJSON, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractIDFromURL(tt.url, tt.platform))
		})
	}
}

func TestParseImportURLFormat(t *testing.T) {
	data := []byte(`[
		{"name": "Steins;Gate", "mal": "https://myanimelist.net/anime/9253", "al": "https://anilist.co/anime/9253"},
		{"title": "Monster", "mal": "https://myanimelist.net/anime/19"},
		{"mal": "https://myanimelist.net/anime/1"}
	]`)

	entries, format, err := ParseImport(data, 0)
	require.NoError(t, err)
	assert.Equal(t, FormatURL, format)
	require.Len(t, entries, 3)

	assert.Equal(t, "Steins;Gate", entries[0].Title)
	assert.Equal(t, 9253, entries[0].DirectMALID)
	assert.Equal(t, 9253, entries[0].DirectAniListID)
	assert.Equal(t, models.StatusPlanning, entries[0].Status)
	assert.Equal(t, models.PlatformJSON, entries[0].Origin)
	assert.Contains(t, entries[0].Notes, "Imported from JSON")

	// title key works as a name fallback
	assert.Equal(t, "Monster", entries[1].Title)
	assert.Equal(t, 19, entries[1].DirectMALID)
	assert.Zero(t, entries[1].DirectAniListID)

	// nameless items keep their position
	assert.Equal(t, "Untitled 3", entries[2].Title)
}

func TestParseImportMetadataFormat(t *testing.T) {
	data := []byte(`[
		{
			"series_title": "Vinland Saga",
			"mal_id": 642,
			"my_status": "reading",
			"my_score": 9,
			"read_chapters": 150,
			"read_volumes": 20,
			"num_chapters": 220,
			"started_date": "2020-01-15",
			"comments": "good"
		},
		{"title": "Berserk", "id": 2, "status": "on_hold"}
	]`)

	entries, format, err := ParseImport(data, 0)
	require.NoError(t, err)
	assert.Equal(t, FormatMetadata, format)
	require.Len(t, entries, 2)

	e := entries[0]
	assert.Equal(t, "Vinland Saga", e.Title)
	assert.Equal(t, 642, e.SourceID)
	assert.Equal(t, models.StatusWatching, e.Status)
	assert.Equal(t, 9, e.Score)
	assert.Equal(t, 150, e.Progress)
	assert.Equal(t, 20, e.ProgressVolumes)
	assert.Equal(t, 220, e.TotalUnits)
	assert.Equal(t, "2020-01-15", e.StartDate)
	assert.Equal(t, "good", e.Notes)
	assert.Equal(t, models.PlatformJSON, e.Origin)

	assert.Equal(t, models.StatusOnHold, entries[1].Status)
}

func TestParseImportSkipsTitlelessMetadataRows(t *testing.T) {
	data := []byte(`[
		{"mal_id": 1, "score": 7},
		{"title": "Akira", "mal_id": 47}
	]`)

	entries, _, err := ParseImport(data, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Akira", entries[0].Title)
}

func TestParseImportFormatPrecedence(t *testing.T) {
	// A mal key on the first element selects the URL shape even when
	// metadata fields ride along.
	data := []byte(`[
		{"name": "Hellsing", "mal": "https://myanimelist.net/anime/270", "score": 8, "progress": 13}
	]`)

	entries, format, err := ParseImport(data, 0)
	require.NoError(t, err)
	assert.Equal(t, FormatURL, format)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].Score)
	assert.Equal(t, 270, entries[0].DirectMALID)
}

func TestParseImportInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"not an array", `{"name": "x"}`},
		{"empty array", `[]`},
		{"scalar elements", `[1, 2, 3]`},
		{"all titleless metadata", `[{"mal_id": 5}, {"score": 3}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseImport([]byte(tt.data), 0)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestParseImportSizeLimit(t *testing.T) {
	big := []byte(fmt.Sprintf(`[{"title": %q}]`, strings.Repeat("a", 100)))

	_, _, err := ParseImport(big, 16)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, _, err = ParseImport([]byte(`[{"title": "ok"}]`), 1<<10)
	assert.NoError(t, err)
}

func TestDetectImportFormat(t *testing.T) {
	assert.Equal(t, FormatURL, DetectImportFormat(mustSample(t, `{"mal": "x"}`)))
	assert.Equal(t, FormatURL, DetectImportFormat(mustSample(t, `{"al": "x", "title": "y"}`)))
	assert.Equal(t, FormatMetadata, DetectImportFormat(mustSample(t, `{"title": "x"}`)))
}

func mustSample(t *testing.T, raw string) map[string]json.RawMessage {
	t.Helper()
	var sample map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &sample))
	return sample
}
