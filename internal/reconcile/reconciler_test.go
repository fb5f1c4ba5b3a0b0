package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listbridge/internal/events"
	"listbridge/pkg/models"
)

func malEntry(id int, title string) models.Entry {
	return models.Entry{Title: title, SourceID: id, Origin: models.PlatformMAL}
}

func anilistEntry(id int, title string) models.Entry {
	return models.Entry{Title: title, SourceID: id, Origin: models.PlatformAniList}
}

func TestComparePartition(t *testing.T) {
	source := []models.Entry{
		malEntry(16498, "Shingeki no Kyojin"),
		malEntry(20, "Naruto"),
		malEntry(457, "Mushishi"),
	}
	target := []models.Entry{
		anilistEntry(16498, "Shingeki no Kyojin"),
		anilistEntry(457, "Mushishi"),
		anilistEntry(269, "Bleach"),
	}

	result := New(nil).Compare(source, target)

	require.Len(t, result.Intersection, 2)
	for _, p := range result.Intersection {
		assert.Equal(t, p.Left.Title, p.Right.Title)
		assert.InDelta(t, 1.0, p.Similarity, 1e-9)
	}

	require.Len(t, result.SourceOnly, 1)
	assert.Equal(t, "Naruto", result.SourceOnly[0].Title)

	require.Len(t, result.TargetOnly, 1)
	assert.Equal(t, "Bleach", result.TargetOnly[0].Title)

	assert.Equal(t, models.CompareStats{
		SourceTotal:     3,
		TargetTotal:     3,
		Matches:         2,
		SourceOnlyCount: 1,
		TargetOnlyCount: 1,
	}, result.Stats)
}

func TestCompareDeduplicatesBidirectionalPairs(t *testing.T) {
	// Both passes find the same pairing; it must appear once, in
	// source-left orientation.
	source := []models.Entry{malEntry(1, "Cowboy Bebop")}
	target := []models.Entry{anilistEntry(1, "Cowboy Bebop")}

	result := New(nil).Compare(source, target)

	require.Len(t, result.Intersection, 1)
	assert.Equal(t, models.PlatformMAL, result.Intersection[0].Left.Origin)
	assert.Equal(t, models.PlatformAniList, result.Intersection[0].Right.Origin)
	assert.Empty(t, result.SourceOnly)
	assert.Empty(t, result.TargetOnly)
}

func TestCompareDuplicateTitlesKeepEveryEntry(t *testing.T) {
	// Two id-less rows share a title; only one target slot exists. The
	// unmatched duplicate must still surface in SourceOnly.
	source := []models.Entry{
		{Title: "Monster", Origin: models.PlatformJSON},
		{Title: "Monster", Origin: models.PlatformJSON},
	}
	target := []models.Entry{anilistEntry(19, "Monster")}

	result := New(nil).Compare(source, target)

	require.Len(t, result.Intersection, 1)
	require.Len(t, result.SourceOnly, 1)
	assert.Equal(t, "Monster", result.SourceOnly[0].Title)
	assert.Empty(t, result.TargetOnly)

	// every input row is accounted for on its side of the partition
	assert.Equal(t, len(source), result.Stats.Matches+result.Stats.SourceOnlyCount)
	assert.Equal(t, len(target), result.Stats.Matches+result.Stats.TargetOnlyCount)
}

func TestCompareNearTitleVariants(t *testing.T) {
	// Punctuation and article differences normalize away entirely.
	source := []models.Entry{malEntry(30, "Neon Genesis: Evangelion")}
	target := []models.Entry{anilistEntry(30, "neon genesis evangelion")}

	result := New(nil).Compare(source, target)
	require.Len(t, result.Intersection, 1)
	assert.InDelta(t, 1.0, result.Intersection[0].Similarity, 1e-9)
}

func TestCompareThresholdExcludesWeakPairs(t *testing.T) {
	r := New(nil)
	r.Threshold = 0.97

	source := []models.Entry{malEntry(1, "Hunter x Hunter")}
	target := []models.Entry{anilistEntry(2, "Hunter x Hunter (2011)")}

	strict := r.Compare(source, target)
	r.Threshold = 0.85
	loose := r.Compare(source, target)

	// The 2011 suffix costs enough similarity to fail only the strict bar.
	assert.Empty(t, strict.Intersection)
	assert.Len(t, loose.Intersection, 1)
}

func TestCompareEmptyLists(t *testing.T) {
	r := New(nil)

	result := r.Compare(nil, nil)
	assert.Empty(t, result.Intersection)
	assert.Empty(t, result.SourceOnly)
	assert.Empty(t, result.TargetOnly)

	result = r.Compare([]models.Entry{malEntry(1, "Trigun")}, nil)
	require.Len(t, result.SourceOnly, 1)
	assert.Empty(t, result.Intersection)
}

func TestComparePublishesProgress(t *testing.T) {
	bus := events.NewBus(nil)
	var got []events.Event
	bus.Subscribe(func(ev events.Event) { got = append(got, ev) })

	New(bus).Compare(
		[]models.Entry{malEntry(1, "Monster")},
		[]models.Entry{anilistEntry(1, "Monster")},
	)

	require.NotEmpty(t, got)
	assert.Equal(t, 0, got[0].Progress)
	assert.Equal(t, 100, got[len(got)-1].Progress)
}
