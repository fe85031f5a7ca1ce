package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lherron/guildq/internal/db"
)

// TempDB creates a migrated temporary SQLite database for testing
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

func stamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// SeedChapter inserts a chapter row and returns its id
func SeedChapter(t *testing.T, database *db.DB, name string) string {
	t.Helper()
	id := uuid.NewString()
	ts := stamp()
	if _, err := database.Exec(`
		INSERT INTO chapters (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, id, name, ts, ts); err != nil {
		t.Fatalf("Failed to seed chapter %s: %v", name, err)
	}
	return id
}

// SeedCycle inserts a cycle in goal_selection state and returns its id
func SeedCycle(t *testing.T, database *db.DB, chapterID string, number int) string {
	t.Helper()
	id := uuid.NewString()
	if _, err := database.Exec(`
		INSERT INTO cycles (id, chapter_id, cycle_number, state, created_at) VALUES (?, ?, ?, 'goal_selection', ?)
	`, id, chapterID, number, stamp()); err != nil {
		t.Fatalf("Failed to seed cycle %d: %v", number, err)
	}
	return id
}

// SeedUser inserts a user and returns its id
func SeedUser(t *testing.T, database *db.DB, handle string) string {
	t.Helper()
	id := uuid.NewString()
	if _, err := database.Exec(`
		INSERT INTO users (id, handle, created_at) VALUES (?, ?, ?)
	`, id, strings.ToLower(handle), stamp()); err != nil {
		t.Fatalf("Failed to seed user %s: %v", handle, err)
	}
	return id
}

// SeedGoal inserts a goal into the local catalog
func SeedGoal(t *testing.T, database *db.DB, number int, title string) {
	t.Helper()
	if _, err := database.Exec(`
		INSERT INTO goals (number, title, team_size, level, created_at) VALUES (?, ?, 2, 1, ?)
	`, number, title, stamp()); err != nil {
		t.Fatalf("Failed to seed goal %d: %v", number, err)
	}
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, database *db.DB, table string) int {
	t.Helper()
	var n int
	if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// WriteFile writes content to a file in a temporary directory
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}
