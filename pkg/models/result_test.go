package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchResultFailed(t *testing.T) {
	partial := FetchResult{
		AniList: []Entry{{Title: "Monster"}},
		Errors:  []FetchError{{Platform: PlatformMAL, Reason: "rate limited"}},
	}

	assert.True(t, partial.Failed(PlatformMAL))
	assert.False(t, partial.Failed(PlatformAniList))
	assert.False(t, partial.AllFailed())

	both := FetchResult{Errors: []FetchError{
		{Platform: PlatformMAL, Reason: "down"},
		{Platform: PlatformAniList, Reason: "down"},
	}}
	assert.True(t, both.AllFailed())

	assert.False(t, FetchResult{}.AllFailed())
}
