package platform

import (
	"context"
	"errors"

	"listbridge/pkg/models"
)

// Errors the bindings raise. Fetch-phase callers collect them per platform;
// the sync driver records them per item. None of them abort a whole run.
var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrRateLimited       = errors.New("rate limited by platform")
	ErrNotFound          = errors.New("not found")
	ErrSearchUnsupported = errors.New("title search not supported on this platform")
)

// Provider fetches a user's list from one platform. Implementations must
// return an empty slice, not an error, for a user with no entries.
type Provider interface {
	Name() models.Platform
	FetchList(ctx context.Context, username string, kind models.Kind) ([]models.Entry, error)
}

// Mutator creates or updates a single list entry on one platform.
//
// SearchByTitle is an optional capability: a binding that cannot search must
// return false from CanSearch and ErrSearchUnsupported from SearchByTitle,
// so callers can tell "nothing matched" from "couldn't even try".
type Mutator interface {
	Name() models.Platform
	UpsertEntry(ctx context.Context, targetID int, entry models.Entry, kind models.Kind) error
	SearchByTitle(ctx context.Context, title string, kind models.Kind) (int, error)
	CanSearch() bool
}
