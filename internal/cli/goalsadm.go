package cli

import (
	"fmt"
	"strconv"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/goals"
	"github.com/lherron/guildq/internal/render"
	"github.com/spf13/cobra"
)

var goalsAdmCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage the local goal catalog",
}

var goalsAdmLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List catalog goals",
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runGoalsAdmList),
}

var goalAdmAddCmd = &cobra.Command{
	Use:   "add <number> <title>",
	Short: "Add or replace a catalog goal",
	Args:  cobra.ExactArgs(2),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runGoalAdmAdd),
}

var goalsAdmFetchCmd = &cobra.Command{
	Use:   "fetch <number>...",
	Short: "Copy goals from the remote goal library into the catalog",
	Long: `Fetches each goal from GUILDQ_GOAL_LIBRARY_URL (or --url) and stores it in
the local catalog, so later imports resolve it without the network.`,
	Args: cobra.MinimumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runGoalsAdmFetch),
}

var (
	goalsAdmLsJSON     bool
	goalAdmAddURL      string
	goalAdmAddTeamSize int
	goalAdmAddLevel    int
	goalsAdmFetchURL   string
)

func init() {
	rootAdmCmd.AddCommand(goalsAdmCmd)
	goalsAdmCmd.AddCommand(goalsAdmLsCmd)
	goalsAdmCmd.AddCommand(goalAdmAddCmd)
	goalsAdmCmd.AddCommand(goalsAdmFetchCmd)

	goalsAdmLsCmd.Flags().BoolVar(&goalsAdmLsJSON, "json", false, "Output as JSON")
	goalAdmAddCmd.Flags().StringVar(&goalAdmAddURL, "url", "", "Link to the goal description")
	goalAdmAddCmd.Flags().IntVar(&goalAdmAddTeamSize, "team-size", 0, "Suggested team size")
	goalAdmAddCmd.Flags().IntVar(&goalAdmAddLevel, "level", 0, "Difficulty level")
	goalsAdmFetchCmd.Flags().StringVar(&goalsAdmFetchURL, "url", "", "Goal library base URL (overrides GUILDQ_GOAL_LIBRARY_URL)")
}

func runGoalsAdmList(app *appctx.App, cmd *cobra.Command, args []string) error {
	catalog, err := app.Store.Goals.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list goals: %w", err)
	}

	rows := make([][]string, 0, len(catalog))
	for _, g := range catalog {
		rows = append(rows, []string{strconv.Itoa(g.Number), g.Title, strconv.Itoa(g.TeamSize), strconv.Itoa(g.Level)})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
		Format: outputFormat(app.Config.Output, goalsAdmLsJSON, false),
	})
	return r.Render(catalog, []string{"NUMBER", "TITLE", "TEAM", "LEVEL"}, rows)
}

func runGoalAdmAdd(app *appctx.App, cmd *cobra.Command, args []string) error {
	number, err := domain.ParseGoalNumber(args[0])
	if err != nil {
		return exitError(ExitValidation, err)
	}

	goal := domain.Goal{
		Number:   number,
		Title:    args[1],
		URL:      goalAdmAddURL,
		TeamSize: goalAdmAddTeamSize,
		Level:    goalAdmAddLevel,
	}
	if err := app.Store.Goals.Upsert(cmd.Context(), goal); err != nil {
		return exitError(1, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved goal %d: %s\n", goal.Number, goal.Title)
	return nil
}

func runGoalsAdmFetch(app *appctx.App, cmd *cobra.Command, args []string) error {
	baseURL := goalsAdmFetchURL
	if baseURL == "" {
		baseURL = app.Config.GoalLibraryURL
	}
	if baseURL == "" {
		return exitError(ExitValidation, fmt.Errorf("no goal library configured (set GUILDQ_GOAL_LIBRARY_URL or use --url)"))
	}

	library := goals.NewLibrary(baseURL, nil)
	for _, arg := range args {
		number, err := domain.ParseGoalNumber(arg)
		if err != nil {
			return exitError(ExitValidation, err)
		}
		goal, err := library.Get(cmd.Context(), number)
		if err != nil {
			return fmt.Errorf("failed to fetch goal %d: %w", number, err)
		}
		if goal == nil {
			return exitError(ExitNotFound, fmt.Errorf("goal %d not found in library", number))
		}
		if err := app.Store.Goals.Upsert(cmd.Context(), *goal); err != nil {
			return exitError(1, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Fetched goal %d: %s\n", goal.Number, goal.Title)
	}
	return nil
}
