package sqlitemigrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func migrationFS(name, upSQL string) fstest.MapFS {
	return fstest.MapFS{
		name: &fstest.MapFile{
			Data: []byte("-- +migrate Up\n" + upSQL),
		},
	}
}

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	db := openMemoryDB(t)

	files := migrationFS("001_categories.sql", "CREATE TABLE categories(id TEXT PRIMARY KEY);")
	if err := ApplyMigrations(db, files, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if got := countRows(t, db, "schema_migrations"); got != 1 {
		t.Fatalf("expected 1 migration row, got %d", got)
	}
	if !tableExists(t, db, "categories") {
		t.Fatal("expected migrated table to exist")
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := openMemoryDB(t)

	files := migrationFS("001_categories.sql", "CREATE TABLE categories(id TEXT PRIMARY KEY);")
	if err := ApplyMigrations(db, files, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if err := ApplyMigrations(db, files, ""); err != nil {
		t.Fatalf("replay migrations: %v", err)
	}

	if got := countRows(t, db, "schema_migrations"); got != 1 {
		t.Fatalf("expected single migration row after replay, got %d", got)
	}
}

func TestApplyMigrationsDoesNotRecordFailure(t *testing.T) {
	db := openMemoryDB(t)

	bad := migrationFS("001_escrows.sql", "CREAT table escrows(id INT);")
	if err := ApplyMigrations(db, bad, ""); err == nil {
		t.Fatal("expected broken migration to fail")
	}
	if got := countRows(t, db, "schema_migrations"); got != 0 {
		t.Fatalf("expected failed migration to stay unrecorded, got %d rows", got)
	}

	fixed := migrationFS("001_escrows.sql", "CREATE TABLE escrows(id TEXT PRIMARY KEY);")
	if err := ApplyMigrations(db, fixed, ""); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if got := countRows(t, db, "schema_migrations"); got != 1 {
		t.Fatalf("expected fixed migration to be recorded, got %d rows", got)
	}
}

func TestApplyMigrationsKeysIncludeRoot(t *testing.T) {
	db := openMemoryDB(t)

	files := fstest.MapFS{
		"market/001_bids.sql": &fstest.MapFile{
			Data: []byte("-- +migrate Up\nCREATE TABLE bids(id TEXT PRIMARY KEY);"),
		},
	}
	if err := ApplyMigrations(db, files, "market"); err != nil {
		t.Fatalf("apply migrations with root: %v", err)
	}

	var key string
	if err := db.QueryRow("SELECT name FROM schema_migrations LIMIT 1").Scan(&key); err != nil {
		t.Fatalf("read migration key: %v", err)
	}
	if key != "market/001_bids.sql" {
		t.Fatalf("expected root-qualified migration key, got %q", key)
	}
	if !tableExists(t, db, "bids") {
		t.Fatal("expected migrated table in rooted migration")
	}
}

func TestExtractUpMigration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "up and down",
			content: "-- +migrate Up\nCREATE TABLE a(id TEXT);\n-- +migrate Down\nDROP TABLE a;",
			want:    "\nCREATE TABLE a(id TEXT);\n",
		},
		{
			name:    "up only",
			content: "-- +migrate Up\nCREATE TABLE a(id TEXT);",
			want:    "\nCREATE TABLE a(id TEXT);",
		},
		{
			name:    "no markers",
			content: "CREATE TABLE a(id TEXT);",
			want:    "CREATE TABLE a(id TEXT);",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractUpMigration(tc.content); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&value); err != nil {
		t.Fatalf("count rows in %s: %v", table, err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()
	var name string
	row := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tableName)
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return false
		}
		t.Fatalf("check table exists: %v", err)
	}
	return name == tableName
}
