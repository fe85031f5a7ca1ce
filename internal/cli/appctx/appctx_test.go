package appctx

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/guildq/internal/db"
	"github.com/lherron/guildq/internal/importer"
	"github.com/lherron/guildq/internal/testutil"
	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("db", "", "Database path")
	cmd.Flags().String("log-level", "", "Log level")
	return cmd
}

// isolate keeps Bootstrap away from the developer's own config files
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GUILDQ_GOAL_LIBRARY_URL", "")
	t.Setenv("GUILDQ_CHANNEL_WEBHOOK_URLS", "")
}

func migratedDB(t *testing.T, path string) {
	t.Helper()
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	database.Close()
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	isolate(t)
	t.Setenv("GUILDQ_DB_PATH", filepath.Join(t.TempDir(), "test.db"))

	app, err := Bootstrap(newTestCmd(), ConfigOnly())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil || app.Log == nil {
		t.Error("Config and Log should be set")
	}
	if app.DB != nil || app.Store != nil {
		t.Error("DB and Store should be nil when NeedsDB is false")
	}
}

func TestBootstrap_DBFlagOverride(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	overridePath := filepath.Join(tmpDir, "override.db")
	migratedDB(t, dbPath)
	migratedDB(t, overridePath)

	t.Setenv("GUILDQ_DB_PATH", dbPath)

	cmd := newTestCmd()
	cmd.ParseFlags([]string{"--db", overridePath, "--log-level", "debug"})

	app, err := Bootstrap(cmd, DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config.DBPath != overridePath {
		t.Errorf("DBPath should be override path %q, got %q", overridePath, app.Config.DBPath)
	}
	if app.Config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", app.Config.LogLevel)
	}
	if app.Store == nil {
		t.Error("Store should be set when NeedsDB is true")
	}
}

func TestBootstrap_PendingMigrations(t *testing.T) {
	isolate(t)
	t.Setenv("GUILDQ_DB_PATH", filepath.Join(t.TempDir(), "fresh.db"))

	_, err := Bootstrap(newTestCmd(), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for unmigrated database")
	}
	if !strings.Contains(err.Error(), "guildqadm migrate") {
		t.Errorf("error should point at guildqadm migrate, got: %v", err)
	}
}

func TestOpenDB_PendingMigrations(t *testing.T) {
	_, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"))
	if err == nil {
		t.Fatal("expected error for unmigrated database")
	}
	if strings.Contains(err.Error(), "database is closed") {
		t.Errorf("error should describe the pending migrations, got: %v", err)
	}
	if !strings.Contains(err.Error(), "guildqadm migrate") {
		t.Errorf("error should point at guildqadm migrate, got: %v", err)
	}
}

func TestApp_ResolverImportsAgainstStore(t *testing.T) {
	isolate(t)
	_, dbPath := testutil.TempDB(t)
	t.Setenv("GUILDQ_DB_PATH", dbPath)

	app, err := Bootstrap(newTestCmd(), DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	chapterID := testutil.SeedChapter(t, app.DB, "berlin")
	testutil.SeedCycle(t, app.DB, chapterID, 1)
	testutil.SeedUser(t, app.DB, "alice")
	testutil.SeedGoal(t, app.DB, 42, "Build a CLI")

	res, err := app.Resolver().Import(context.Background(), importer.Input{
		ChapterIdentifier: "berlin",
		GoalIdentifier:    "42",
		PlayerIdentifiers: []string{"alice"},
	}, importer.Options{InitializeChannel: true})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !res.Created || res.Project.Name == "" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.ChannelErr != nil {
		t.Errorf("channel init without webhooks should be a no-op, got %v", res.ChannelErr)
	}
}
