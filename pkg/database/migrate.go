package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
)

const defaultSchemaPath = "docs/schema.sql"

// Migrate applies the schema. Every statement is IF NOT EXISTS, so rerunning
// on an already-migrated database is a no-op. LISTBRIDGE_SCHEMA_PATH overrides
// the path for binaries started outside the repo root.
func Migrate(db *sql.DB) error {
	path := os.Getenv("LISTBRIDGE_SCHEMA_PATH")
	if path == "" {
		path = defaultSchemaPath
	}

	schema, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", path, err)
	}

	if _, err := db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply schema %s: %w", path, err)
	}

	log.Printf("[database] schema applied from %s", path)
	return nil
}
