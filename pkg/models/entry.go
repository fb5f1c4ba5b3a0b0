package models

import "strconv"

// Platform identifies where an entry originated or where it is being pushed.
type Platform string

const (
	PlatformMAL     Platform = "mal"
	PlatformAniList Platform = "anilist"
	PlatformJSON    Platform = "json"
)

// Kind selects between a user's anime list and manga list.
type Kind string

const (
	KindAnime Kind = "anime"
	KindManga Kind = "manga"
)

// Entry is the normalized, platform-agnostic form of one tracked title.
//
// Every platform response and import row is mapped into this structure
// first; comparison and sync code only ever sees Entry. All fields other
// than Title default to a defined empty value (0 or "") rather than being
// absent, so downstream code never branches on field presence.
type Entry struct {
	Title           string   `json:"title"`
	SourceID        int      `json:"source_id,omitempty"` // platform-native numeric ID, 0 for import rows without one
	Status          Status   `json:"status"`
	Score           int      `json:"score"`
	Progress        int      `json:"progress"` // episodes watched / chapters read
	ProgressVolumes int      `json:"progress_volumes,omitempty"`
	TotalUnits      int      `json:"total_units,omitempty"` // 0 = unknown
	StartDate       string   `json:"start_date,omitempty"`  // YYYY-MM-DD, "" = unset
	FinishDate      string   `json:"finish_date,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Origin          Platform `json:"origin"`

	// Direct IDs carried by URL-based imports. When the sync target already
	// has one of these, the driver pushes by ID and skips fuzzy matching.
	DirectMALID     int `json:"direct_mal_id,omitempty"`
	DirectAniListID int `json:"direct_anilist_id,omitempty"`
}

// Key identifies an entry within its own list: the platform-native ID when
// present, otherwise the raw title. Used by the reconciler to deduplicate
// match pairs and to partition unmatched entries.
func (e Entry) Key() string {
	if e.SourceID != 0 {
		return string(e.Origin) + ":" + strconv.Itoa(e.SourceID)
	}
	return "t:" + e.Title
}

// DirectTargetID returns the direct ID this entry carries for the given
// platform, or 0 when it has none.
func (e Entry) DirectTargetID(p Platform) int {
	switch p {
	case PlatformMAL:
		if e.DirectMALID != 0 {
			return e.DirectMALID
		}
	case PlatformAniList:
		if e.DirectAniListID != 0 {
			return e.DirectAniListID
		}
	}
	if e.Origin == p {
		return e.SourceID
	}
	return 0
}
