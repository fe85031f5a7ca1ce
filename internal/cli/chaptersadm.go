package cli

import (
	"fmt"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/render"
	"github.com/lherron/guildq/internal/store"
	"github.com/spf13/cobra"
)

var chaptersAdmCmd = &cobra.Command{
	Use:   "chapters",
	Short: "Manage chapters",
}

var chaptersAdmLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all chapters",
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runChaptersAdmList),
}

var chapterAdmAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new chapter",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runChapterAdmAdd),
}

var (
	chaptersAdmLsJSON    bool
	chapterAdmAddChannel string
)

func init() {
	rootAdmCmd.AddCommand(chaptersAdmCmd)
	chaptersAdmCmd.AddCommand(chaptersAdmLsCmd)
	chaptersAdmCmd.AddCommand(chapterAdmAddCmd)

	chaptersAdmLsCmd.Flags().BoolVar(&chaptersAdmLsJSON, "json", false, "Output as JSON")
	chapterAdmAddCmd.Flags().StringVar(&chapterAdmAddChannel, "channel", "", "Chat channel name for the chapter")
}

func runChaptersAdmList(app *appctx.App, cmd *cobra.Command, args []string) error {
	chapters, err := app.Store.Chapters.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list chapters: %w", err)
	}

	rows := make([][]string, 0, len(chapters))
	for _, c := range chapters {
		rows = append(rows, []string{c.ID, c.Name, optionalString(c.ChannelName)})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
		Format: outputFormat(app.Config.Output, chaptersAdmLsJSON, false),
	})
	return r.Render(chapters, []string{"ID", "NAME", "CHANNEL"}, rows)
}

func runChapterAdmAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	chapter, err := app.Store.Chapters.Create(cmd.Context(), store.ChapterCreateParams{
		Name:        args[0],
		ChannelName: chapterAdmAddChannel,
	})
	if err != nil {
		return exitError(1, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created chapter: %s (%s)\n", chapter.Name, chapter.ID)
	return nil
}
