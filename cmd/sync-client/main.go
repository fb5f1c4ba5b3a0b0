package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"listbridge/internal/events"
)

// Tails the API server's TCP progress feed and renders each typed event as a
// one-line summary. Reconnects until killed.
func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP progress stream address")
	raw := flag.Bool("raw", false, "print raw JSON lines instead of summaries")
	flag.Parse()

	for {
		if err := run(*addr, *raw); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, raw bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		if raw {
			fmt.Println(string(line))
			continue
		}

		var ev events.Event
		if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
			// welcome banner and anything else that is not an event
			fmt.Println(string(line))
			continue
		}
		fmt.Println(render(ev))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

// render prefixes the summary with the event time and, for sync runs, the
// short run id.
func render(ev events.Event) string {
	stamp := ev.At.Local().Format("15:04:05")
	if ev.RunID != "" {
		id := ev.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		return fmt.Sprintf("%s %s %s", stamp, id, ev.String())
	}
	return fmt.Sprintf("%s %s", stamp, ev.String())
}
