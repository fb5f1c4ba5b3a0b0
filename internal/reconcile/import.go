package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"listbridge/pkg/models"
)

// ErrInvalidFormat reports a malformed or empty JSON import. It aborts the
// import step only, never the surrounding operation.
var ErrInvalidFormat = errors.New("invalid import format")

// DefaultMaxImportBytes bounds how large an import file may be before we
// refuse to parse it.
const DefaultMaxImportBytes = 10 << 20 // 10 MiB

// ImportFormat distinguishes the two accepted JSON import shapes.
type ImportFormat string

const (
	FormatURL      ImportFormat = "url"
	FormatMetadata ImportFormat = "metadata"
)

var (
	malURLPattern     = regexp.MustCompile(`myanimelist\.net/(anime|manga)/(\d+)`)
	anilistURLPattern = regexp.MustCompile(`anilist\.co/(anime|manga)/(\d+)`)
)

// DetectImportFormat inspects the first element of an import array. Presence
// of a mal/al key selects the URL shape even when metadata fields are also
// present; that precedence mirrors the original importer.
func DetectImportFormat(sample map[string]json.RawMessage) ImportFormat {
	if _, ok := sample["mal"]; ok {
		return FormatURL
	}
	if _, ok := sample["al"]; ok {
		return FormatURL
	}
	return FormatMetadata
}

// ExtractIDFromURL pulls the numeric media ID out of a MAL or AniList entry
// URL. Returns 0 when the URL is empty or does not match the platform's
// pattern.
func ExtractIDFromURL(rawURL string, platform models.Platform) int {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return 0
	}

	var pattern *regexp.Regexp
	switch platform {
	case models.PlatformMAL:
		pattern = malURLPattern
	case models.PlatformAniList:
		pattern = anilistURLPattern
	default:
		return 0
	}

	groups := pattern.FindStringSubmatch(rawURL)
	if groups == nil {
		return 0
	}
	id, err := strconv.Atoi(groups[2])
	if err != nil {
		return 0
	}
	return id
}

type urlItem struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	MAL   string `json:"mal"`
	AL    string `json:"al"`
}

type metadataItem struct {
	ID              int    `json:"id"`
	MALID           int    `json:"mal_id"`
	AniListID       int    `json:"anilist_id"`
	Title           string `json:"title"`
	Name            string `json:"name"`
	SeriesTitle     string `json:"series_title"`
	Status          string `json:"status"`
	MyStatus        string `json:"my_status"`
	Score           int    `json:"score"`
	MyScore         int    `json:"my_score"`
	Progress        int    `json:"progress"`
	WatchedEpisodes int    `json:"watched_episodes"`
	ReadChapters    int    `json:"read_chapters"`
	ProgressVolumes int    `json:"progress_volumes"`
	ReadVolumes     int    `json:"read_volumes"`
	TotalEpisodes   int    `json:"total_episodes"`
	NumEpisodes     int    `json:"num_episodes"`
	TotalChapters   int    `json:"total_chapters"`
	NumChapters     int    `json:"num_chapters"`
	StartDate       string `json:"start_date"`
	StartedDate     string `json:"started_date"`
	FinishDate      string `json:"finish_date"`
	FinishedDate    string `json:"finished_date"`
	Notes           string `json:"notes"`
	Comments        string `json:"comments"`
}

// ParseImport decodes a JSON import file into canonical entries. The two
// accepted shapes are auto-detected from the first element. maxBytes <= 0
// falls back to DefaultMaxImportBytes; oversize input is rejected before
// parsing.
func ParseImport(data []byte, maxBytes int64) ([]models.Entry, ImportFormat, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImportBytes
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidFormat, maxBytes)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, "", fmt.Errorf("%w: expected a JSON array of items", ErrInvalidFormat)
	}
	if len(elements) == 0 {
		return nil, "", fmt.Errorf("%w: import array is empty", ErrInvalidFormat)
	}

	var sample map[string]json.RawMessage
	if err := json.Unmarshal(elements[0], &sample); err != nil {
		return nil, "", fmt.Errorf("%w: array elements must be objects", ErrInvalidFormat)
	}
	format := DetectImportFormat(sample)

	var (
		entries []models.Entry
		err     error
	)
	switch format {
	case FormatURL:
		entries, err = parseURLItems(elements)
	default:
		entries, err = parseMetadataItems(elements)
	}
	if err != nil {
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", fmt.Errorf("%w: no element carries a title", ErrInvalidFormat)
	}
	return entries, format, nil
}

func parseURLItems(elements []json.RawMessage) ([]models.Entry, error) {
	entries := make([]models.Entry, 0, len(elements))
	for i, raw := range elements {
		var item urlItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidFormat, i)
		}

		title := strings.TrimSpace(item.Name)
		if title == "" {
			title = strings.TrimSpace(item.Title)
		}
		if title == "" {
			title = fmt.Sprintf("Untitled %d", i+1)
		}

		malURL := strings.TrimSpace(item.MAL)
		alURL := strings.TrimSpace(item.AL)
		entry := models.Entry{
			Title:           title,
			Status:          models.StatusPlanning,
			Origin:          models.PlatformJSON,
			DirectMALID:     ExtractIDFromURL(malURL, models.PlatformMAL),
			DirectAniListID: ExtractIDFromURL(alURL, models.PlatformAniList),
		}
		if malURL != "" || alURL != "" {
			entry.Notes = fmt.Sprintf("Imported from JSON - Original MAL: %s, AniList: %s", malURL, alURL)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseMetadataItems(elements []json.RawMessage) ([]models.Entry, error) {
	entries := make([]models.Entry, 0, len(elements))
	for i, raw := range elements {
		var item metadataItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidFormat, i)
		}

		title := firstNonEmpty(item.Title, item.Name, item.SeriesTitle)
		if title == "" {
			continue
		}

		entries = append(entries, models.Entry{
			Title:           title,
			SourceID:        firstNonZero(item.ID, item.MALID, item.AniListID),
			Status:          models.StatusFromMAL(firstNonEmpty(item.Status, item.MyStatus)),
			Score:           firstNonZero(item.Score, item.MyScore),
			Progress:        firstNonZero(item.Progress, item.WatchedEpisodes, item.ReadChapters),
			ProgressVolumes: firstNonZero(item.ProgressVolumes, item.ReadVolumes),
			TotalUnits:      firstNonZero(item.TotalEpisodes, item.NumEpisodes, item.TotalChapters, item.NumChapters),
			StartDate:       firstNonEmpty(item.StartDate, item.StartedDate),
			FinishDate:      firstNonEmpty(item.FinishDate, item.FinishedDate),
			Notes:           firstNonEmpty(item.Notes, item.Comments),
			Origin:          models.PlatformJSON,
		})
	}
	return entries, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
