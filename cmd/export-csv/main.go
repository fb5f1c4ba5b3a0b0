package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"listbridge/internal/events"
	"listbridge/internal/listcache"
	"listbridge/internal/platform"
	"listbridge/internal/ratelimit"
	"listbridge/internal/reconcile"
	"listbridge/pkg/database"
	"listbridge/pkg/models"
	"listbridge/pkg/utils"
)

// Fetches both lists, reconciles them, and writes the three-way partition
// as CSV reports.
func main() {
	var (
		malUser     = flag.String("mal", "", "MyAnimeList username")
		anilistUser = flag.String("anilist", "", "AniList username")
		kindFlag    = flag.String("kind", "anime", "anime or manga")
		outDir      = flag.String("out", "data", "output directory")
		cached      = flag.Bool("cached", false, "export from stored snapshots instead of fetching")
	)
	flag.Parse()

	if *malUser == "" || *anilistUser == "" {
		log.Fatal("-mal and -anilist usernames are required")
	}
	var kind models.Kind
	switch *kindFlag {
	case "anime":
		kind = models.KindAnime
	case "manga":
		kind = models.KindManga
	default:
		log.Fatalf("kind must be anime or manga, got %q", *kindFlag)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	syncCfg := utils.LoadSyncConfig()
	bus := events.NewBus(nil)
	bus.Subscribe(func(ev events.Event) { log.Printf("[export] %s", ev.Message) })

	var malList, anilistList []models.Entry
	if *cached {
		malList, anilistList = loadSnapshots(ctx, *malUser, *anilistUser, kind)
	} else {
		limiter := ratelimit.New()
		limiter.SetPolicy(platform.LimitKeyJikan, ratelimit.Policy{Interval: syncCfg.JikanInterval})
		limiter.SetPolicy(platform.LimitKeyAniList, ratelimit.Policy{
			WindowLimit: syncCfg.AniListPerMin,
			WindowSpan:  time.Minute,
			Buffer:      syncCfg.AniListBuffer,
		})

		mal := platform.NewMAL("", limiter)
		anilist := platform.NewAniList("", limiter)
		fetcher := platform.NewFetcher(mal, anilist, bus)

		fetched := fetcher.FetchBoth(ctx, *malUser, *anilistUser, kind)
		for _, fe := range fetched.Errors {
			log.Printf("fetch %s failed: %s (exporting partial data)", fe.Platform, fe.Reason)
		}
		if fetched.AllFailed() {
			log.Fatal("both fetches failed, nothing to export")
		}
		malList, anilistList = fetched.MAL, fetched.AniList
	}

	reconciler := reconcile.New(bus)
	reconciler.Threshold = syncCfg.MatchThreshold
	result := reconciler.Compare(malList, anilistList)

	if err := writeMatches(filepath.Join(*outDir, "matched.csv"), result.Intersection); err != nil {
		log.Fatalf("export matched failed: %v", err)
	}
	if err := writeEntries(filepath.Join(*outDir, "mal_only.csv"), result.SourceOnly); err != nil {
		log.Fatalf("export mal_only failed: %v", err)
	}
	if err := writeEntries(filepath.Join(*outDir, "anilist_only.csv"), result.TargetOnly); err != nil {
		log.Fatalf("export anilist_only failed: %v", err)
	}

	log.Printf("exported %d matched, %d mal-only, %d anilist-only rows to %s",
		len(result.Intersection), len(result.SourceOnly), len(result.TargetOnly), *outDir)
}

// loadSnapshots reads the newest stored list for each platform, written by an
// earlier /compare run.
func loadSnapshots(ctx context.Context, malUser, anilistUser string, kind models.Kind) ([]models.Entry, []models.Entry) {
	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()
	repo := listcache.NewRepo(db)

	malSnap, err := repo.Latest(ctx, models.PlatformMAL, malUser, kind)
	if err != nil {
		log.Fatalf("load mal snapshot: %v", err)
	}
	anilistSnap, err := repo.Latest(ctx, models.PlatformAniList, anilistUser, kind)
	if err != nil {
		log.Fatalf("load anilist snapshot: %v", err)
	}
	if malSnap == nil || anilistSnap == nil {
		log.Fatal("no stored snapshot for that user/kind; run a live compare first")
	}

	log.Printf("[export] using snapshots from %s (mal) and %s (anilist)",
		malSnap.FetchedAt.Format(time.RFC3339), anilistSnap.FetchedAt.Format(time.RFC3339))
	return malSnap.Entries, anilistSnap.Entries
}

func writeMatches(outPath string, pairs []models.MatchPair) error {
	w, f, err := newCSV(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"mal_title", "anilist_title", "similarity", "mal_id", "anilist_id"}); err != nil {
		return err
	}
	for _, p := range pairs {
		row := []string{
			p.Left.Title,
			p.Right.Title,
			fmt.Sprintf("%.4f", p.Similarity),
			strconv.Itoa(p.Left.SourceID),
			strconv.Itoa(p.Right.SourceID),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeEntries(outPath string, entries []models.Entry) error {
	w, f, err := newCSV(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := w.Write([]string{"title", "id", "status", "score", "progress"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Title,
			strconv.Itoa(e.SourceID),
			string(e.Status),
			strconv.Itoa(e.Score),
			strconv.Itoa(e.Progress),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func newCSV(outPath string) (*csv.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(f), f, nil
}
