package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listbridge/internal/events"
	"listbridge/internal/platform"
	"listbridge/internal/ratelimit"
	"listbridge/internal/reconcile"
	"listbridge/internal/syncer"
	"listbridge/pkg/models"
	"listbridge/pkg/utils"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "compare":
		runCompare(args[1:])
	case "import":
		runImport(args[1:])
	case "sync":
		runSync(args[1:])
	case "push":
		runPush(args[1:])
	case "listen":
		runListen(args[1:])
	default:
		printUsage()
		os.Exit(1)
	}
}

// engine bundles the pieces a local run needs, wired the same way as the
// API server but without the HTTP surface.
type engine struct {
	fetcher    *platform.Fetcher
	reconciler *reconcile.Reconciler
	driver     *syncer.Driver
	bus        *events.Bus
}

func buildEngine() *engine {
	syncCfg := utils.LoadSyncConfig()

	limiter := ratelimit.New()
	limiter.SetPolicy(platform.LimitKeyJikan, ratelimit.Policy{Interval: syncCfg.JikanInterval})
	limiter.SetPolicy(platform.LimitKeyMAL, ratelimit.Policy{Interval: syncCfg.MALInterval})
	limiter.SetPolicy(platform.LimitKeyAniList, ratelimit.Policy{
		WindowLimit: syncCfg.AniListPerMin,
		WindowSpan:  time.Minute,
		Buffer:      syncCfg.AniListBuffer,
	})

	mal := platform.NewMAL(os.Getenv("LISTBRIDGE_MAL_TOKEN"), limiter)
	anilist := platform.NewAniList(os.Getenv("LISTBRIDGE_ANILIST_TOKEN"), limiter)

	bus := events.NewBus(nil)
	bus.Subscribe(printEvent)

	reconciler := reconcile.New(bus)
	reconciler.Threshold = syncCfg.MatchThreshold

	driver := syncer.NewDriver(map[models.Platform]platform.Mutator{
		models.PlatformMAL:     mal,
		models.PlatformAniList: anilist,
	}, bus, nil, syncCfg.ItemDelay)

	return &engine{
		fetcher:    platform.NewFetcher(mal, anilist, bus),
		reconciler: reconciler,
		driver:     driver,
		bus:        bus,
	}
}

func printEvent(ev events.Event) {
	switch ev.Type {
	case events.EventItem:
		fmt.Printf("[%d/%d] %s\n", ev.Current, ev.Total, ev.Message)
	case events.EventError, events.EventWarning:
		fmt.Fprintln(os.Stderr, ev.Message)
	default:
		fmt.Println(ev.Message)
	}
}

func runCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	malUser := fs.String("mal", "", "MyAnimeList username")
	anilistUser := fs.String("anilist", "", "AniList username")
	kindFlag := fs.String("kind", "anime", "anime or manga")
	out := fs.String("out", "", "write full result JSON to file")
	_ = fs.Parse(args)

	if *malUser == "" || *anilistUser == "" {
		log.Fatal("-mal and -anilist usernames are required")
	}
	kind := mustKind(*kindFlag)

	eng := buildEngine()
	ctx := context.Background()

	fetched := eng.fetcher.FetchBoth(ctx, *malUser, *anilistUser, kind)
	for _, fe := range fetched.Errors {
		log.Printf("fetch %s failed: %s (comparing with partial data)", fe.Platform, fe.Reason)
	}
	if fetched.AllFailed() {
		log.Fatal("both fetches failed, nothing to compare")
	}

	result := eng.reconciler.Compare(fetched.MAL, fetched.AniList)
	fmt.Printf("matched: %d  mal-only: %d  anilist-only: %d\n",
		len(result.Intersection), len(result.SourceOnly), len(result.TargetOnly))

	if *out != "" {
		if err := writeJSON(*out, result); err != nil {
			log.Fatalf("write result: %v", err)
		}
		fmt.Printf("result written to %s\n", *out)
	}
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "JSON export file")
	out := fs.String("out", "", "write parsed entries JSON to file")
	_ = fs.Parse(args)

	if *file == "" {
		log.Fatal("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	entries, format, err := reconcile.ParseImport(data, reconcile.DefaultMaxImportBytes)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("parsed %d entries (%s format)\n", len(entries), format)
	for _, e := range entries {
		fmt.Printf("  %s (mal=%d anilist=%d)\n", e.Title, e.DirectMALID, e.DirectAniListID)
	}

	if *out != "" {
		if err := writeJSON(*out, entries); err != nil {
			log.Fatalf("write entries: %v", err)
		}
	}
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	file := fs.String("file", "", "entries JSON file (from import -out)")
	target := fs.String("target", "", "target platform: mal or anilist")
	kindFlag := fs.String("kind", "anime", "anime or manga")
	_ = fs.Parse(args)

	if *file == "" {
		log.Fatal("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	var entries []models.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatalf("decode entries: %v", err)
	}

	eng := buildEngine()
	syncEntries(eng, entries, mustPlatform(*target), mustKind(*kindFlag))
}

// runPush is the end-to-end path: fetch both lists, compare, then push the
// entries missing from the target.
func runPush(args []string) {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	malUser := fs.String("mal", "", "MyAnimeList username")
	anilistUser := fs.String("anilist", "", "AniList username")
	target := fs.String("target", "", "target platform: mal or anilist")
	kindFlag := fs.String("kind", "anime", "anime or manga")
	_ = fs.Parse(args)

	if *malUser == "" || *anilistUser == "" {
		log.Fatal("-mal and -anilist usernames are required")
	}
	tgt := mustPlatform(*target)
	kind := mustKind(*kindFlag)

	eng := buildEngine()
	ctx := context.Background()

	fetched := eng.fetcher.FetchBoth(ctx, *malUser, *anilistUser, kind)
	for _, fe := range fetched.Errors {
		// A failed target fetch would make the whole source list look
		// missing and mass-push it; only a failed source side is safe to
		// push past.
		if fe.Platform == tgt {
			log.Fatalf("fetch %s failed: %s", fe.Platform, fe.Reason)
		}
		log.Printf("fetch %s failed: %s (pushing with partial data)", fe.Platform, fe.Reason)
	}

	result := eng.reconciler.Compare(fetched.MAL, fetched.AniList)

	// Compare is MAL-left: SourceOnly is missing from AniList and vice versa.
	var missing []models.Entry
	if tgt == models.PlatformAniList {
		missing = result.SourceOnly
	} else {
		missing = result.TargetOnly
	}

	if len(missing) == 0 {
		fmt.Println("nothing to push, lists already agree")
		return
	}

	fmt.Printf("pushing %d entries to %s\n", len(missing), tgt)
	syncEntries(eng, missing, tgt, kind)
}

func syncEntries(eng *engine, entries []models.Entry, target models.Platform, kind models.Kind) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C requests cooperative cancellation, the current item finishes.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("cancelling after current item...")
		eng.driver.Cancel()
	}()

	outcome, err := eng.driver.SyncToTarget(ctx, entries, target, kind)
	if err != nil {
		log.Fatalf("sync failed: %v", err)
	}

	fmt.Printf("done: %d succeeded, %d failed\n", outcome.Succeeded, outcome.Failed)
	for _, ie := range outcome.Errors {
		fmt.Fprintf(os.Stderr, "  failed: %s: %s\n", ie.Title, ie.Reason)
	}
	if outcome.Failed > 0 {
		os.Exit(1)
	}
}

// runListen tails the API server's TCP progress feed.
func runListen(args []string) {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:7070", "TCP event stream address")
	pretty := fs.Bool("pretty", false, "pretty print JSON events")
	_ = fs.Parse(args)

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	log.Printf("[listen] connected to %s", *addr)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if !*pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("stream closed: %v", err)
	}
}

func mustKind(s string) models.Kind {
	switch s {
	case "anime":
		return models.KindAnime
	case "manga":
		return models.KindManga
	}
	log.Fatalf("kind must be anime or manga, got %q", s)
	return ""
}

func mustPlatform(s string) models.Platform {
	switch s {
	case "mal":
		return models.PlatformMAL
	case "anilist":
		return models.PlatformAniList
	}
	log.Fatalf("target must be mal or anilist, got %q", s)
	return ""
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func printUsage() {
	fmt.Println(`listbridge - MyAnimeList <-> AniList list sync

Usage:
  listbridge compare -mal USER -anilist USER [-kind anime|manga] [-out result.json]
  listbridge import  -file export.json [-out entries.json]
  listbridge sync    -file entries.json -target mal|anilist [-kind anime|manga]
  listbridge push    -mal USER -anilist USER -target mal|anilist [-kind anime|manga]
  listbridge listen  [-addr 127.0.0.1:7070] [-pretty]

Mutations need a bearer token in LISTBRIDGE_MAL_TOKEN / LISTBRIDGE_ANILIST_TOKEN.`)
}
