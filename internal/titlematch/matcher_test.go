package titlematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listbridge/pkg/models"
)

func entries(titles ...string) []models.Entry {
	out := make([]models.Entry, 0, len(titles))
	for i, title := range titles {
		out = append(out, models.Entry{Title: title, SourceID: i + 1})
	}
	return out
}

func TestFindMatchesBasic(t *testing.T) {
	source := entries("Attack on Titan", "One Piece", "Berserk")
	target := entries("attack on titan!", "ONE PIECE", "Vinland Saga")

	matches := FindMatches(source, target, DefaultThreshold)
	require.Len(t, matches, 2)

	assert.Equal(t, "Attack on Titan", matches[0].Left.Title)
	assert.Equal(t, "attack on titan!", matches[0].Right.Title)
	assert.Equal(t, 1.0, matches[0].Similarity, "normalization strips punctuation and case")

	assert.Equal(t, "One Piece", matches[1].Left.Title)
	assert.Equal(t, "ONE PIECE", matches[1].Right.Title)
}

func TestFindMatchesOneToOne(t *testing.T) {
	// Two near-identical source titles competing for a single target: only
	// one may claim it.
	source := entries("Mushishi", "Mushishi Zoku Shou", "Mushoku Tensei")
	target := entries("Mushishi")

	matches := FindMatches(source, target, DefaultThreshold)

	claimed := make(map[string]int)
	for _, m := range matches {
		claimed[m.Right.Key()]++
	}
	for key, n := range claimed {
		assert.Equal(t, 1, n, "target %s claimed more than once", key)
	}
	require.Len(t, matches, 1)
	assert.Equal(t, "Mushishi", matches[0].Left.Title)
}

func TestFindMatchesThreshold(t *testing.T) {
	source := entries("Naruto")
	target := entries("Bleach")

	assert.Empty(t, FindMatches(source, target, DefaultThreshold))

	// A permissive threshold accepts weak pairs; the pair must carry its score.
	weak := FindMatches(source, target, 0.01)
	require.Len(t, weak, 1)
	assert.Less(t, weak[0].Similarity, DefaultThreshold)
	assert.GreaterOrEqual(t, weak[0].Similarity, 0.01)
}

func TestFindMatchesOrderDependentGreedy(t *testing.T) {
	// First source entry claims the shared best target; the second settles
	// for no match even though it scores equally well.
	source := entries("Hunter x Hunter", "Hunter x Hunter (2011)")
	target := entries("Hunter x Hunter")

	matches := FindMatches(source, target, DefaultThreshold)
	require.Len(t, matches, 1)
	assert.Equal(t, source[0].SourceID, matches[0].Left.SourceID)
}

func TestFindMatchIndexesDistinguishDuplicateTitles(t *testing.T) {
	// Id-less duplicate titles have identical keys; the index form still says
	// exactly which row matched.
	source := []models.Entry{{Title: "Monster"}, {Title: "Monster"}}
	target := []models.Entry{{Title: "Monster"}}

	matches := FindMatchIndexes(source, target, DefaultThreshold)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Source)
	assert.Equal(t, 0, matches[0].Target)
	assert.Equal(t, 1.0, matches[0].Similarity)
}

func TestFindMatchesEmptyInputs(t *testing.T) {
	assert.Empty(t, FindMatches(nil, entries("A"), DefaultThreshold))
	assert.Empty(t, FindMatches(entries("A"), nil, DefaultThreshold))
}
