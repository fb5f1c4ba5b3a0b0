package models

// MatchPair joins one source entry with the target entry it was matched to.
// Ephemeral: recomputed on every comparison run.
type MatchPair struct {
	Left       Entry   `json:"left"`
	Right      Entry   `json:"right"`
	Similarity float64 `json:"similarity"`
}

// Reconciliation is the immutable result of comparing two lists.
type Reconciliation struct {
	Intersection []MatchPair  `json:"intersection"`
	SourceOnly   []Entry      `json:"source_only"`
	TargetOnly   []Entry      `json:"target_only"`
	Stats        CompareStats `json:"stats"`
}

// CompareStats summarizes a reconciliation for reporting.
type CompareStats struct {
	SourceTotal     int `json:"source_total"`
	TargetTotal     int `json:"target_total"`
	Matches         int `json:"matches"`
	SourceOnlyCount int `json:"source_only_count"`
	TargetOnlyCount int `json:"target_only_count"`
}

// ItemError records one entry that failed to sync and why.
type ItemError struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// SyncOutcome aggregates per-item results over one sync run.
type SyncOutcome struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// FetchError records a platform whose list could not be retrieved during the
// fetch phase. Fetch errors are collected, not thrown: comparison proceeds
// with whatever lists were retrieved.
type FetchError struct {
	Platform Platform `json:"platform"`
	Reason   string   `json:"reason"`
}

// FetchResult holds both platform lists plus any per-platform fetch errors.
type FetchResult struct {
	MAL     []Entry      `json:"mal"`
	AniList []Entry      `json:"anilist"`
	Errors  []FetchError `json:"errors,omitempty"`
}

// Failed reports whether the platform's fetch errored.
func (r FetchResult) Failed(p Platform) bool {
	for _, fe := range r.Errors {
		if fe.Platform == p {
			return true
		}
	}
	return false
}

// AllFailed reports whether neither platform returned a list. One failed
// platform still leaves a usable one-sided comparison.
func (r FetchResult) AllFailed() bool {
	return r.Failed(PlatformMAL) && r.Failed(PlatformAniList)
}
