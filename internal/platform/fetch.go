package platform

import (
	"context"
	"fmt"
	"log"
	"sync"

	"listbridge/internal/events"
	"listbridge/pkg/models"
)

// Fetcher reads both platforms' lists for the comparison phase. A failed
// platform is recorded in the result's Errors and does not stop the other
// fetch; callers decide whether partial data is enough to proceed.
type Fetcher struct {
	MAL     Provider
	AniList Provider
	Bus     *events.Bus // optional
}

func NewFetcher(mal, anilist Provider, bus *events.Bus) *Fetcher {
	return &Fetcher{MAL: mal, AniList: anilist, Bus: bus}
}

// FetchBoth retrieves the MAL and AniList lists concurrently. The two reads
// are independent; each failure is collected against its platform.
func (f *Fetcher) FetchBoth(ctx context.Context, malUsername, anilistUsername string, kind models.Kind) models.FetchResult {
	f.publish(events.Event{Type: events.EventStatus, Message: "Starting data fetch...", Progress: 0})

	result := models.FetchResult{
		MAL:     []models.Entry{},
		AniList: []models.Entry{},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		f.publish(events.Event{Type: events.EventStatus, Message: "Fetching MyAnimeList data...", Progress: 25})
		entries, err := f.MAL.FetchList(ctx, malUsername, kind)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Printf("[fetch] mal error: %v", err)
			result.Errors = append(result.Errors, models.FetchError{
				Platform: models.PlatformMAL,
				Reason:   err.Error(),
			})
			return
		}
		result.MAL = entries
		f.publish(events.Event{
			Type:     events.EventStatus,
			Message:  fmt.Sprintf("Fetched %d items from MAL", len(entries)),
			Progress: 50,
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		f.publish(events.Event{Type: events.EventStatus, Message: "Fetching AniList data...", Progress: 75})
		entries, err := f.AniList.FetchList(ctx, anilistUsername, kind)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Printf("[fetch] anilist error: %v", err)
			result.Errors = append(result.Errors, models.FetchError{
				Platform: models.PlatformAniList,
				Reason:   err.Error(),
			})
			return
		}
		result.AniList = entries
		f.publish(events.Event{
			Type:     events.EventStatus,
			Message:  fmt.Sprintf("Fetched %d items from AniList", len(entries)),
			Progress: 100,
		})
	}()

	wg.Wait()
	return result
}

func (f *Fetcher) publish(ev events.Event) {
	if f.Bus != nil {
		f.Bus.Publish(ev)
	}
}
