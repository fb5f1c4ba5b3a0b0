package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"listbridge/internal/ratelimit"
	"listbridge/pkg/models"
)

const (
	defaultAniListBaseURL = "https://graphql.anilist.co"

	LimitKeyAniList = "anilist"
)

// AniList binds the AniList GraphQL API. Reads work unauthenticated for
// public lists; mutations require a bearer token.
type AniList struct {
	Client  *http.Client
	Limiter *ratelimit.Limiter
	Token   string
	BaseURL string
}

func NewAniList(token string, limiter *ratelimit.Limiter) *AniList {
	return &AniList{
		Client:  &http.Client{Timeout: 15 * time.Second},
		Limiter: limiter,
		Token:   token,
		BaseURL: defaultAniListBaseURL,
	}
}

func (a *AniList) Name() models.Platform { return models.PlatformAniList }

func (a *AniList) CanSearch() bool { return true }

const listQuery = `
query ($username: String, $type: MediaType) {
  MediaListCollection(userName: $username, type: $type) {
    lists {
      entries {
        status
        score
        progress
        progressVolumes
        startedAt { year month day }
        completedAt { year month day }
        notes
        media {
          id
          title { romaji english native }
          episodes
          chapters
        }
      }
    }
  }
}`

const searchQuery = `
query ($search: String, $type: MediaType) {
  Media(search: $search, type: $type) {
    id
  }
}`

const saveEntryMutation = `
mutation ($mediaId: Int, $status: MediaListStatus, $score: Int, $progress: Int, $progressVolumes: Int, $startedAt: FuzzyDateInput, $completedAt: FuzzyDateInput, $notes: String) {
  SaveMediaListEntry(mediaId: $mediaId, status: $status, score: $score, progress: $progress, progressVolumes: $progressVolumes, startedAt: $startedAt, completedAt: $completedAt, notes: $notes) {
    id
  }
}`

type fuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type listCollection struct {
	MediaListCollection struct {
		Lists []struct {
			Entries []struct {
				Status          string    `json:"status"`
				Score           int       `json:"score"`
				Progress        int       `json:"progress"`
				ProgressVolumes int       `json:"progressVolumes"`
				StartedAt       fuzzyDate `json:"startedAt"`
				CompletedAt     fuzzyDate `json:"completedAt"`
				Notes           string    `json:"notes"`
				Media           struct {
					ID    int `json:"id"`
					Title struct {
						Romaji  string `json:"romaji"`
						English string `json:"english"`
						Native  string `json:"native"`
					} `json:"title"`
					Episodes int `json:"episodes"`
					Chapters int `json:"chapters"`
				} `json:"media"`
			} `json:"entries"`
		} `json:"lists"`
	} `json:"MediaListCollection"`
}

// FetchList pulls every custom list in the user's collection and flattens
// the entries.
func (a *AniList) FetchList(ctx context.Context, username string, kind models.Kind) ([]models.Entry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("anilist: username required")
	}

	var data listCollection
	err := a.query(ctx, listQuery, map[string]any{
		"username": username,
		"type":     mediaType(kind),
	}, &data)
	if err != nil {
		return nil, err
	}

	var all []models.Entry
	for _, list := range data.MediaListCollection.Lists {
		for _, e := range list.Entries {
			title := e.Media.Title.Romaji
			if title == "" {
				title = e.Media.Title.English
			}
			if title == "" {
				title = e.Media.Title.Native
			}
			total := e.Media.Episodes
			if kind == models.KindManga {
				total = e.Media.Chapters
			}
			all = append(all, models.Entry{
				Title:           title,
				SourceID:        e.Media.ID,
				Status:          models.StatusFromAniList(e.Status),
				Score:           e.Score,
				Progress:        e.Progress,
				ProgressVolumes: e.ProgressVolumes,
				TotalUnits:      total,
				StartDate:       formatFuzzyDate(e.StartedAt),
				FinishDate:      formatFuzzyDate(e.CompletedAt),
				Notes:           e.Notes,
				Origin:          models.PlatformAniList,
			})
		}
	}
	if all == nil {
		all = []models.Entry{}
	}
	return all, nil
}

// SearchByTitle resolves a title to an AniList media ID. A miss is reported
// as ErrNotFound, distinct from ErrSearchUnsupported.
func (a *AniList) SearchByTitle(ctx context.Context, title string, kind models.Kind) (int, error) {
	var data struct {
		Media *struct {
			ID int `json:"id"`
		} `json:"Media"`
	}
	err := a.query(ctx, searchQuery, map[string]any{
		"search": title,
		"type":   mediaType(kind),
	}, &data)
	if err != nil {
		return 0, err
	}
	if data.Media == nil || data.Media.ID == 0 {
		return 0, fmt.Errorf("anilist: search %q: %w", title, ErrNotFound)
	}
	return data.Media.ID, nil
}

// UpsertEntry saves the entry on the user's AniList via SaveMediaListEntry.
func (a *AniList) UpsertEntry(ctx context.Context, targetID int, entry models.Entry, kind models.Kind) error {
	if strings.TrimSpace(a.Token) == "" {
		return fmt.Errorf("anilist: %w", ErrAuthRequired)
	}
	if targetID <= 0 {
		return fmt.Errorf("anilist: target id required")
	}

	variables := map[string]any{
		"mediaId": targetID,
		"status":  entry.Status.ToAniList(),
	}
	if entry.Score > 0 {
		variables["score"] = entry.Score
	}
	if entry.Progress > 0 {
		variables["progress"] = entry.Progress
	}
	if kind == models.KindManga && entry.ProgressVolumes > 0 {
		variables["progressVolumes"] = entry.ProgressVolumes
	}
	if d := parseFuzzyDate(entry.StartDate); d != nil {
		variables["startedAt"] = d
	}
	if d := parseFuzzyDate(entry.FinishDate); d != nil {
		variables["completedAt"] = d
	}
	if entry.Notes != "" {
		variables["notes"] = entry.Notes
	}

	var out struct {
		SaveMediaListEntry struct {
			ID int `json:"id"`
		} `json:"SaveMediaListEntry"`
	}
	return a.query(ctx, saveEntryMutation, variables, &out)
}

// query posts one GraphQL request and decodes the data payload into out.
func (a *AniList) query(ctx context.Context, query string, variables map[string]any, out any) error {
	if err := a.Limiter.Acquire(ctx, LimitKeyAniList); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("anilist: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("anilist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("anilist: request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError("anilist", resp.StatusCode); err != nil {
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("anilist: decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("anilist: graphql: %s", strings.Join(msgs, "; "))
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("anilist: decode data: %w", err)
		}
	}
	return nil
}

func mediaType(kind models.Kind) string {
	if kind == models.KindManga {
		return "MANGA"
	}
	return "ANIME"
}

func formatFuzzyDate(d fuzzyDate) string {
	if d.Year == 0 {
		return ""
	}
	month := d.Month
	if month == 0 {
		month = 1
	}
	day := d.Day
	if day == 0 {
		day = 1
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, month, day)
}

func parseFuzzyDate(s string) *fuzzyDate {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &fuzzyDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}
