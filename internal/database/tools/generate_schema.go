// Command generate_schema applies every migration to an in-memory database
// and writes the resulting tables and indexes to internal/database/schema.sql.
//
// With -check it writes nothing and exits 1 when schema.sql is stale.
package main

import (
	"bytes"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"d2sm/internal/database"
	"d2sm/internal/database/migrations"
)

const dumpQuery = `
SELECT sql || ';'
FROM sqlite_master
WHERE type IN ('table', 'index')
  AND sql IS NOT NULL
  AND name NOT LIKE 'sqlite_%'
  AND tbl_name != 'schema_migrations'
ORDER BY type = 'index', name`

func main() {
	out := flag.String("o", filepath.Join("internal", "database", "schema.sql"), "output file")
	check := flag.Bool("check", false, "fail if the output file is out of date")
	flag.Parse()
	log.SetFlags(0)

	schema, err := render()
	if err != nil {
		log.Fatal(err)
	}

	if *check {
		current, err := os.ReadFile(*out)
		if err != nil {
			log.Fatal(err)
		}
		if !bytes.Equal(current, schema) {
			log.Fatalf("%s is stale; run 'go generate ./internal/database'", *out)
		}
		return
	}

	if err := os.WriteFile(*out, schema, 0644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("generated %s\n", *out)
}

func render() ([]byte, error) {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}
	version, err := migrations.LatestVersion()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "-- Generated from internal/database/migrations/files/*.sql (version %d).\n", version)
	buf.WriteString("-- Do not edit; run 'go generate ./internal/database'.\n\n")

	if err := dump(db, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dump(db *sql.DB, buf *bytes.Buffer) error {
	rows, err := db.Query(dumpQuery)
	if err != nil {
		return fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return fmt.Errorf("reading sqlite_master: %w", err)
		}
		buf.WriteString(stmt)
		buf.WriteString("\n\n")
	}
	return rows.Err()
}
