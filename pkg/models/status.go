package models

import "strings"

// Status is the canonical watch/read status shared by every platform.
type Status string

const (
	StatusWatching  Status = "watching"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"
	StatusDropped   Status = "dropped"
	StatusPlanning  Status = "planning"
)

// StatusFromMAL maps a MAL status string (anime or manga vocabulary) onto the
// canonical set. Unknown or empty input defaults to Planning.
func StatusFromMAL(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "watching", "reading":
		return StatusWatching
	case "completed":
		return StatusCompleted
	case "on_hold":
		return StatusOnHold
	case "dropped":
		return StatusDropped
	case "plan_to_watch", "plan_to_read":
		return StatusPlanning
	default:
		return StatusPlanning
	}
}

// ToMAL converts a canonical status back to MAL vocabulary. Watching and
// Planning are kind-dependent (watching/reading, plan_to_watch/plan_to_read).
func (s Status) ToMAL(kind Kind) string {
	switch s {
	case StatusWatching:
		if kind == KindManga {
			return "reading"
		}
		return "watching"
	case StatusCompleted:
		return "completed"
	case StatusOnHold:
		return "on_hold"
	case StatusDropped:
		return "dropped"
	default:
		if kind == KindManga {
			return "plan_to_read"
		}
		return "plan_to_watch"
	}
}

// StatusFromAniList maps an AniList MediaListStatus onto the canonical set.
// Unknown or empty input defaults to Planning.
func StatusFromAniList(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CURRENT", "REPEATING":
		return StatusWatching
	case "COMPLETED":
		return StatusCompleted
	case "PAUSED":
		return StatusOnHold
	case "DROPPED":
		return StatusDropped
	case "PLANNING":
		return StatusPlanning
	default:
		return StatusPlanning
	}
}

// ToAniList converts a canonical status to an AniList MediaListStatus.
func (s Status) ToAniList() string {
	switch s {
	case StatusWatching:
		return "CURRENT"
	case StatusCompleted:
		return "COMPLETED"
	case StatusOnHold:
		return "PAUSED"
	case StatusDropped:
		return "DROPPED"
	default:
		return "PLANNING"
	}
}
