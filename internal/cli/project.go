package cli

import (
	"fmt"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/render"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project <id|name>",
	Short: "Show a single project",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runProject),
}

var (
	projectJSON bool
	projectYAML bool
)

func init() {
	rootCmd.AddCommand(projectCmd)

	projectCmd.Flags().BoolVar(&projectJSON, "json", false, "Output as JSON")
	projectCmd.Flags().BoolVar(&projectYAML, "yaml", false, "Output as YAML")
}

func runProject(app *appctx.App, cmd *cobra.Command, args []string) error {
	project, err := app.Store.Projects.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if project == nil {
		return exitError(ExitNotFound, fmt.Errorf("project not found: %s", args[0]))
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
		Format: outputFormat(app.Config.Output, projectJSON, projectYAML),
	})
	return r.Render(project, []string{"FIELD", "VALUE"}, projectRows(project))
}
