package reconcile

import (
	"listbridge/internal/events"
	"listbridge/internal/titlematch"
	"listbridge/pkg/models"
)

// Reconciler turns two canonical lists into an intersection plus two
// platform-exclusive difference sets.
type Reconciler struct {
	Threshold float64
	Bus       *events.Bus // optional, nil disables progress events
}

func New(bus *events.Bus) *Reconciler {
	return &Reconciler{
		Threshold: titlematch.DefaultThreshold,
		Bus:       bus,
	}
}

// Compare runs the matcher in both directions and merges the passes.
//
// Running twice tolerates pairings the greedy source-first pass misses. Pairs
// are deduplicated by their (source index, target index) composite; when both
// passes find the same pair, the source-to-target result wins. Matching on
// indices rather than entry keys keeps the partition exact even when two
// id-less entries share a title. Entries whose index never appears on the
// accepted side of a pair land in SourceOnly/TargetOnly.
func (r *Reconciler) Compare(source, target []models.Entry) models.Reconciliation {
	r.publish(events.Event{Type: events.EventStatus, Message: "Comparing lists...", Progress: 0})

	threshold := r.Threshold
	if threshold == 0 {
		threshold = titlematch.DefaultThreshold
	}

	forward := titlematch.FindMatchIndexes(source, target, threshold)
	reverse := titlematch.FindMatchIndexes(target, source, threshold)

	type pairKey struct {
		left, right int
	}
	seen := make(map[pairKey]struct{}, len(forward)+len(reverse))
	intersection := make([]models.MatchPair, 0, len(forward))
	matchedLeft := make(map[int]struct{}, len(forward))
	matchedRight := make(map[int]struct{}, len(forward))

	add := func(left, right int, sim float64) {
		k := pairKey{left: left, right: right}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		matchedLeft[left] = struct{}{}
		matchedRight[right] = struct{}{}
		intersection = append(intersection, models.MatchPair{
			Left:       source[left],
			Right:      target[right],
			Similarity: sim,
		})
	}

	for _, m := range forward {
		add(m.Source, m.Target, m.Similarity)
	}
	for _, m := range reverse {
		// The reverse pass matched target entries against source entries;
		// flip each pair back into source-left orientation.
		add(m.Target, m.Source, m.Similarity)
	}

	sourceOnly := make([]models.Entry, 0)
	for i, e := range source {
		if _, ok := matchedLeft[i]; !ok {
			sourceOnly = append(sourceOnly, e)
		}
	}
	targetOnly := make([]models.Entry, 0)
	for i, e := range target {
		if _, ok := matchedRight[i]; !ok {
			targetOnly = append(targetOnly, e)
		}
	}

	r.publish(events.Event{Type: events.EventStatus, Message: "Comparison complete", Progress: 100})

	return models.Reconciliation{
		Intersection: intersection,
		SourceOnly:   sourceOnly,
		TargetOnly:   targetOnly,
		Stats: models.CompareStats{
			SourceTotal:     len(source),
			TargetTotal:     len(target),
			Matches:         len(intersection),
			SourceOnlyCount: len(sourceOnly),
			TargetOnlyCount: len(targetOnly),
		},
	}
}

func (r *Reconciler) publish(ev events.Event) {
	if r.Bus != nil {
		r.Bus.Publish(ev)
	}
}
