package cli

import (
	"github.com/spf13/cobra"
)

var rootAdmCmd = &cobra.Command{
	Use:   "guildqadm",
	Short: "Administrative CLI for the guildq database and reference data",
	Long: `guildqadm is the administrative companion to guildq. It handles database
lifecycle (init, migrate) and seeds the reference data imports resolve
against: chapters, cycles, users, and the local goal catalog.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteAdmin runs the admin root command
func ExecuteAdmin() error {
	return rootAdmCmd.Execute()
}

func init() {
	rootAdmCmd.PersistentFlags().String("db", "", "Path to database file (overrides GUILDQ_DB_PATH)")
	rootAdmCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides GUILDQ_LOG_LEVEL)")
}
