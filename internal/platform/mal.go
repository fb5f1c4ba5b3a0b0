package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"listbridge/internal/ratelimit"
	"listbridge/pkg/models"
)

const (
	defaultJikanBaseURL = "https://api.jikan.moe/v4"
	defaultMALBaseURL   = "https://api.myanimelist.net/v2"

	// Limiter keys. Reads go through Jikan (no auth), writes through the
	// official API; the two endpoints have independent budgets.
	LimitKeyJikan = "jikan"
	LimitKeyMAL   = "mal"
)

// MAL binds the MyAnimeList platform: list reads via the public Jikan mirror,
// mutations via the official v2 API with a bearer token. MAL has no usable
// title-search in this binding, so CanSearch reports false.
type MAL struct {
	Client       *http.Client
	Limiter      *ratelimit.Limiter
	Token        string
	JikanBaseURL string
	BaseURL      string
}

func NewMAL(token string, limiter *ratelimit.Limiter) *MAL {
	return &MAL{
		Client:       &http.Client{Timeout: 15 * time.Second},
		Limiter:      limiter,
		Token:        token,
		JikanBaseURL: defaultJikanBaseURL,
		BaseURL:      defaultMALBaseURL,
	}
}

func (m *MAL) Name() models.Platform { return models.PlatformMAL }

func (m *MAL) CanSearch() bool { return false }

// SearchByTitle is not available for MAL; the driver records entries that
// need it as failed rather than silently skipping them.
func (m *MAL) SearchByTitle(ctx context.Context, title string, kind models.Kind) (int, error) {
	return 0, ErrSearchUnsupported
}

type jikanPagination struct {
	HasNextPage bool `json:"has_next_page"`
}

type jikanAnimeResponse struct {
	Data []struct {
		Status          string `json:"status"`
		Score           int    `json:"score"`
		EpisodesWatched int    `json:"episodes_watched"`
		WatchStartDate  string `json:"watch_start_date"`
		WatchEndDate    string `json:"watch_end_date"`
		Anime           struct {
			MALID    int    `json:"mal_id"`
			Title    string `json:"title"`
			Episodes int    `json:"episodes"`
		} `json:"anime"`
	} `json:"data"`
	Pagination jikanPagination `json:"pagination"`
}

type jikanMangaResponse struct {
	Data []struct {
		Status        string `json:"status"`
		Score         int    `json:"score"`
		ChaptersRead  int    `json:"chapters_read"`
		VolumesRead   int    `json:"volumes_read"`
		ReadStartDate string `json:"read_start_date"`
		ReadEndDate   string `json:"read_end_date"`
		Manga         struct {
			MALID    int    `json:"mal_id"`
			Title    string `json:"title"`
			Chapters int    `json:"chapters"`
		} `json:"manga"`
	} `json:"data"`
	Pagination jikanPagination `json:"pagination"`
}

// FetchList reads the user's public list through Jikan, page by page.
func (m *MAL) FetchList(ctx context.Context, username string, kind models.Kind) ([]models.Entry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("mal: username required")
	}

	resource := "animelist"
	if kind == models.KindManga {
		resource = "mangalist"
	}

	var all []models.Entry
	for page := 1; ; page++ {
		if err := m.Limiter.Acquire(ctx, LimitKeyJikan); err != nil {
			return nil, err
		}

		u := fmt.Sprintf("%s/users/%s/%s?page=%d", m.JikanBaseURL, url.PathEscape(username), resource, page)
		body, err := m.get(ctx, u)
		if err != nil {
			return nil, err
		}

		var hasNext bool
		if kind == models.KindManga {
			var resp jikanMangaResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("mal: decode jikan response: %w", err)
			}
			for _, item := range resp.Data {
				all = append(all, models.Entry{
					Title:           item.Manga.Title,
					SourceID:        item.Manga.MALID,
					Status:          models.StatusFromMAL(item.Status),
					Score:           item.Score,
					Progress:        item.ChaptersRead,
					ProgressVolumes: item.VolumesRead,
					TotalUnits:      item.Manga.Chapters,
					StartDate:       datePrefix(item.ReadStartDate),
					FinishDate:      datePrefix(item.ReadEndDate),
					Origin:          models.PlatformMAL,
				})
			}
			hasNext = resp.Pagination.HasNextPage
		} else {
			var resp jikanAnimeResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("mal: decode jikan response: %w", err)
			}
			for _, item := range resp.Data {
				all = append(all, models.Entry{
					Title:      item.Anime.Title,
					SourceID:   item.Anime.MALID,
					Status:     models.StatusFromMAL(item.Status),
					Score:      item.Score,
					Progress:   item.EpisodesWatched,
					TotalUnits: item.Anime.Episodes,
					StartDate:  datePrefix(item.WatchStartDate),
					FinishDate: datePrefix(item.WatchEndDate),
					Origin:     models.PlatformMAL,
				})
			}
			hasNext = resp.Pagination.HasNextPage
		}

		if !hasNext {
			break
		}
	}
	return all, nil
}

// UpsertEntry PUTs the entry's list status to the official MAL API.
func (m *MAL) UpsertEntry(ctx context.Context, targetID int, entry models.Entry, kind models.Kind) error {
	if strings.TrimSpace(m.Token) == "" {
		return fmt.Errorf("mal: %w", ErrAuthRequired)
	}
	if targetID <= 0 {
		return fmt.Errorf("mal: target id required")
	}
	if err := m.Limiter.Acquire(ctx, LimitKeyMAL); err != nil {
		return err
	}

	resource := "anime"
	if kind == models.KindManga {
		resource = "manga"
	}

	form := url.Values{}
	form.Set("status", entry.Status.ToMAL(kind))
	if entry.Score > 0 {
		form.Set("score", strconv.Itoa(entry.Score))
	}
	if kind == models.KindManga {
		if entry.Progress > 0 {
			form.Set("num_chapters_read", strconv.Itoa(entry.Progress))
		}
		if entry.ProgressVolumes > 0 {
			form.Set("num_volumes_read", strconv.Itoa(entry.ProgressVolumes))
		}
	} else if entry.Progress > 0 {
		form.Set("num_watched_episodes", strconv.Itoa(entry.Progress))
	}
	if entry.StartDate != "" {
		form.Set("start_date", entry.StartDate)
	}
	if entry.FinishDate != "" {
		form.Set("finish_date", entry.FinishDate)
	}
	if entry.Notes != "" {
		form.Set("comments", entry.Notes)
	}

	u := fmt.Sprintf("%s/%s/%d/my_list_status", m.BaseURL, resource, targetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mal: request: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError("mal", resp.StatusCode); err != nil {
		return err
	}
	return nil
}

func (m *MAL) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("mal: build request: %w", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mal: request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if err := statusError("mal", resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

// statusError maps HTTP status codes onto the shared error taxonomy.
func statusError(platform string, code int) error {
	switch {
	case code == http.StatusOK || code == http.StatusCreated:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", platform, ErrAuthRequired)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", platform, ErrNotFound)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", platform, ErrRateLimited)
	default:
		return fmt.Errorf("%s: unexpected status %d", platform, code)
	}
}

// datePrefix trims a Jikan RFC3339 timestamp down to its date part.
func datePrefix(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return strings.TrimSpace(s)
}
