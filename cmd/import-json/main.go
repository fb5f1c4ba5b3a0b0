package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"listbridge/internal/reconcile"
)

// Validates a JSON list export and reports what a real import would see.
func main() {
	file := flag.String("file", "", "JSON export file")
	verbose := flag.Bool("v", false, "print every parsed entry")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	entries, format, err := reconcile.ParseImport(data, reconcile.DefaultMaxImportBytes)
	if err != nil {
		log.Fatalf("invalid import file: %v", err)
	}

	withMAL, withAniList := 0, 0
	for _, e := range entries {
		if e.DirectMALID != 0 {
			withMAL++
		}
		if e.DirectAniListID != 0 {
			withAniList++
		}
		if *verbose {
			fmt.Printf("  %s (mal=%d anilist=%d status=%s)\n",
				e.Title, e.DirectMALID, e.DirectAniListID, e.Status)
		}
	}

	fmt.Printf("format: %s\n", format)
	fmt.Printf("entries: %d (%d with MAL IDs, %d with AniList IDs)\n",
		len(entries), withMAL, withAniList)
}
