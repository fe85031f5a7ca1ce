// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup, database opening, and
// resolver wiring to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"net/http"

	"github.com/lherron/guildq/internal/channels"
	"github.com/lherron/guildq/internal/config"
	"github.com/lherron/guildq/internal/db"
	"github.com/lherron/guildq/internal/goals"
	"github.com/lherron/guildq/internal/importer"
	"github.com/lherron/guildq/internal/logging"
	"github.com/lherron/guildq/internal/names"
	"github.com/lherron/guildq/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store wraps DB (nil if NeedsDB is false)
	Store *store.Store

	// Log is the configured logger
	Log logrus.FieldLogger
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.Store = nil
	}
}

// Resolver wires an import resolver over the App's store and configured
// collaborators. The local goal catalog is consulted before the remote goal
// library when one is configured.
func (a *App) Resolver() *importer.Resolver {
	goalLookup := goals.Chain{a.Store.Goals}
	if a.Config.GoalLibraryURL != "" {
		goalLookup = append(goalLookup, goals.NewLibrary(a.Config.GoalLibraryURL, nil))
	}

	var initializer importer.ChannelInitializer = channels.Nop{}
	if len(a.Config.ChannelWebhookURLs) > 0 {
		initializer = channels.New(a.Config.ChannelWebhookURLs,
			channels.WithClient(&http.Client{Timeout: channels.DefaultTimeout}),
			channels.WithLogger(a.Log.WithField("component", "channels")),
		)
	}

	return importer.New(importer.Deps{
		Chapters: a.Store.Chapters,
		Cycles:   a.Store.Cycles,
		Users:    a.Store.Users,
		Goals:    goalLookup,
		Projects: a.Store.Projects,
		Names:    names.NewGenerator(a.Store.Projects),
		Channels: initializer,
		Log:      a.Log,
	})
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool
}

// DefaultOptions returns default options (DB required).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// ConfigOnly returns options that skip opening the database.
func ConfigOnly() Options {
	return Options{NeedsDB: false}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Flags override config
	if dbFlag := cmd.Flag("db"); dbFlag != nil {
		if dbPath := dbFlag.Value.String(); dbPath != "" {
			app.Config.DBPath = dbPath
		}
	}
	if levelFlag := cmd.Flag("log-level"); levelFlag != nil {
		if level := levelFlag.Value.String(); level != "" {
			app.Config.LogLevel = level
		}
	}

	app.Log = logging.New(app.Config.LogLevel, app.Config.LogFormat, cmd.ErrOrStderr())

	if opts.NeedsDB {
		database, err := OpenDB(app.Config.DBPath)
		if err != nil {
			return nil, err
		}
		app.DB = database
		app.Store = store.New(database)
	}

	return app, nil
}

// OpenDB opens the database at path and refuses to continue when migrations
// are pending.
func OpenDB(path string) (*db.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, pending, err := database.MigrationStatus()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}
	if len(pending) > 0 {
		migErr := database.RequiresMigrationError()
		database.Close()
		return nil, migErr
	}

	return database, nil
}
