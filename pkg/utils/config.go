package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("LISTBRIDGE_JWT_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("LISTBRIDGE_JWT_ISSUER")
	if issuer == "" {
		issuer = "listbridge"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: envDuration("LISTBRIDGE_JWT_TTL", 24*time.Hour),
	}
}

// SyncConfig carries the engine's tunables. Every rate limit is a
// configuration value, never a hardcoded constant.
type SyncConfig struct {
	MatchThreshold float64       // minimum title similarity for a match
	ItemDelay      time.Duration // pause between sync mutations
	ImportMaxBytes int64         // JSON import size cap

	MALInterval   time.Duration // official MAL API: ~1 req/s
	JikanInterval time.Duration // Jikan mirror: ~3 req/s
	AniListPerMin int           // AniList rolling budget: 90 req/min
	AniListBuffer time.Duration // safety margin when the window is full
}

func LoadSyncConfig() SyncConfig {
	return SyncConfig{
		MatchThreshold: envFloat("LISTBRIDGE_MATCH_THRESHOLD", 0.85),
		ItemDelay:      envDuration("LISTBRIDGE_ITEM_DELAY", time.Second),
		ImportMaxBytes: envInt64("LISTBRIDGE_IMPORT_MAX_BYTES", 10<<20),
		MALInterval:    envDuration("LISTBRIDGE_MAL_INTERVAL", time.Second),
		JikanInterval:  envDuration("LISTBRIDGE_JIKAN_INTERVAL", 334*time.Millisecond),
		AniListPerMin:  envInt("LISTBRIDGE_ANILIST_PER_MINUTE", 90),
		AniListBuffer:  envDuration("LISTBRIDGE_ANILIST_BUFFER", time.Second),
	}
}

type ServerConfig struct {
	HTTPAddr    string
	StreamAddr  string        // TCP progress-event stream
	NotifyAddr  string        // UDP run-completion notifications
	SnapshotTTL time.Duration // stored list snapshots older than this are pruned
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:    envString("LISTBRIDGE_HTTP_ADDR", ":8080"),
		StreamAddr:  envString("LISTBRIDGE_STREAM_ADDR", ":7070"),
		NotifyAddr:  envString("LISTBRIDGE_NOTIFY_ADDR", ":7071"),
		SnapshotTTL: envDuration("LISTBRIDGE_SNAPSHOT_TTL", 30*24*time.Hour),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
