package cli

import (
	"fmt"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/render"
	"github.com/lherron/guildq/internal/store"
	"github.com/spf13/cobra"
)

var cyclesAdmCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Manage chapter cycles",
}

var cyclesAdmLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the cycles of a chapter, latest first",
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runCyclesAdmList),
}

var cycleAdmAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Open a new cycle in a chapter",
	Long: `Creates a cycle in the chapter given by --chapter. Without --number the
cycle gets the next number after the chapter's latest cycle.`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runCycleAdmAdd),
}

var (
	cyclesAdmChapter  string
	cyclesAdmLsJSON   bool
	cycleAdmAddNumber int
	cycleAdmAddState  string
)

func init() {
	rootAdmCmd.AddCommand(cyclesAdmCmd)
	cyclesAdmCmd.AddCommand(cyclesAdmLsCmd)
	cyclesAdmCmd.AddCommand(cycleAdmAddCmd)

	cyclesAdmCmd.PersistentFlags().StringVar(&cyclesAdmChapter, "chapter", "", "Chapter id or name (required)")
	cyclesAdmLsCmd.Flags().BoolVar(&cyclesAdmLsJSON, "json", false, "Output as JSON")
	cycleAdmAddCmd.Flags().IntVar(&cycleAdmAddNumber, "number", 0, "Cycle number (defaults to the next one)")
	cycleAdmAddCmd.Flags().StringVar(&cycleAdmAddState, "state", string(domain.CycleStateGoalSelection), "Cycle state (goal_selection, practice, reflection, complete)")
}

func resolveChapterAdm(app *appctx.App, cmd *cobra.Command) (*domain.Chapter, error) {
	if cyclesAdmChapter == "" {
		return nil, exitError(ExitValidation, fmt.Errorf("--chapter is required"))
	}
	chapter, err := app.Store.Chapters.Get(cmd.Context(), cyclesAdmChapter)
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		return nil, exitError(ExitNotFound, fmt.Errorf("chapter not found: %s", cyclesAdmChapter))
	}
	return chapter, nil
}

func runCyclesAdmList(app *appctx.App, cmd *cobra.Command, args []string) error {
	chapter, err := resolveChapterAdm(app, cmd)
	if err != nil {
		return err
	}

	cycles, err := app.Store.Cycles.ListForChapter(cmd.Context(), chapter.ID)
	if err != nil {
		return fmt.Errorf("failed to list cycles: %w", err)
	}

	rows := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		started := "-"
		if c.StartedAt != nil {
			started = c.StartedAt.Format("2006-01-02")
		}
		rows = append(rows, []string{fmt.Sprintf("%d", c.CycleNumber), c.ID, string(c.State), started})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
		Format: outputFormat(app.Config.Output, cyclesAdmLsJSON, false),
	})
	return r.Render(cycles, []string{"NUMBER", "ID", "STATE", "STARTED"}, rows)
}

func runCycleAdmAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	chapter, err := resolveChapterAdm(app, cmd)
	if err != nil {
		return err
	}

	cycle, err := app.Store.Cycles.Create(cmd.Context(), store.CycleCreateParams{
		ChapterID:   chapter.ID,
		CycleNumber: cycleAdmAddNumber,
		State:       domain.CycleState(cycleAdmAddState),
	})
	if err != nil {
		return exitError(1, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created cycle %d in %s (%s)\n", cycle.CycleNumber, chapter.Name, cycle.ID)
	return nil
}
