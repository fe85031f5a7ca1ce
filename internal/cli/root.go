package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guildq",
	Short: "Import and inspect guild projects",
	Long: `guildq imports projects for a chapter's cycle from loosely-typed
identifiers (chapter, cycle, goal, players, coach), checking that they all
agree before creating a new project or merging into an existing one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides GUILDQ_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides GUILDQ_LOG_LEVEL)")
}
