package titlematch

import "listbridge/pkg/models"

// DefaultThreshold is the minimum similarity for two titles to count as the
// same series.
const DefaultThreshold = 0.85

// Match pairs a source index with the target index it was matched to.
// Indices survive duplicate titles, where entry keys collapse.
type Match struct {
	Source     int
	Target     int
	Similarity float64
}

// FindMatchIndexes greedily pairs each source entry with its best
// not-yet-claimed target entry whose normalized-title similarity clears the
// threshold.
//
// Matching is one-to-one: a target entry claimed by an earlier source entry
// is removed from consideration. Ties go to the lowest target index because
// only a strictly higher similarity replaces the current best. Source entries
// with no target above the threshold simply produce no pair.
func FindMatchIndexes(source, target []models.Entry, threshold float64) []Match {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	normTarget := make([]string, len(target))
	for i := range target {
		normTarget[i] = Normalize(target[i].Title)
	}

	matches := make([]Match, 0, len(source))
	used := make(map[int]struct{}, len(target))

	for i, src := range source {
		normSrc := Normalize(src.Title)

		best := -1
		bestSim := 0.0
		for j := range target {
			if _, taken := used[j]; taken {
				continue
			}
			sim := Similarity(normSrc, normTarget[j])
			if sim >= threshold && sim > bestSim {
				best = j
				bestSim = sim
			}
		}

		if best >= 0 {
			used[best] = struct{}{}
			matches = append(matches, Match{Source: i, Target: best, Similarity: bestSim})
		}
	}

	return matches
}

// FindMatches resolves the index pairs into entry pairs.
func FindMatches(source, target []models.Entry, threshold float64) []models.MatchPair {
	idx := FindMatchIndexes(source, target, threshold)
	pairs := make([]models.MatchPair, len(idx))
	for i, m := range idx {
		pairs[i] = models.MatchPair{
			Left:       source[m.Source],
			Right:      target[m.Target],
			Similarity: m.Similarity,
		}
	}
	return pairs
}
