package cli

import (
	"fmt"
	"os"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/db"
	"github.com/lherron/guildq/internal/store"
	"github.com/spf13/cobra"
)

var initAdmCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the guildq database",
	Long: `Initialize creates the SQLite database and runs migrations. With
--chapter it also seeds a first chapter and its opening cycle so imports
have something to resolve against.

Running init against an existing database only applies pending migrations.`,
	RunE: appctx.WithApp(appctx.ConfigOnly(), runInitAdm),
}

var (
	initAdmChapter string
	initAdmChannel string
)

func init() {
	rootAdmCmd.AddCommand(initAdmCmd)

	initAdmCmd.Flags().StringVar(&initAdmChapter, "chapter", "", "Name of a chapter to seed in a new database")
	initAdmCmd.Flags().StringVar(&initAdmChannel, "channel", "", "Chat channel name for the seeded chapter")
}

func runInitAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dbPath := app.Config.DBPath

	dbExists := false
	if _, err := os.Stat(dbPath); err == nil {
		dbExists = true
	}

	// Open database (creates file if it doesn't exist)
	database, err := db.Open(dbPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	if dbExists {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", dbPath)
		fmt.Fprintf(out, "✓ Applied %s\n", countLabel(len(applied), "pending migration", "pending migrations"))
		return nil
	}

	fmt.Fprintf(out, "✓ Initialized new database at %s\n", dbPath)

	if initAdmChapter != "" {
		if err := seedChapterAdm(cmd, store.New(database)); err != nil {
			return exitError(1, fmt.Errorf("failed to seed database: %w", err))
		}
		fmt.Fprintf(out, "✓ Seeded chapter %s with cycle 1\n", initAdmChapter)
	}

	app.Log.WithField("db_path", dbPath).Debug("database initialized")
	return nil
}

func seedChapterAdm(cmd *cobra.Command, s *store.Store) error {
	chapter, err := s.Chapters.Create(cmd.Context(), store.ChapterCreateParams{
		Name:        initAdmChapter,
		ChannelName: initAdmChannel,
	})
	if err != nil {
		return err
	}
	_, err = s.Cycles.Create(cmd.Context(), store.CycleCreateParams{
		ChapterID:   chapter.ID,
		CycleNumber: 1,
	})
	return err
}
