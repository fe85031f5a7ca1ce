package cli

import (
	"fmt"
	"strings"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/cursor"
	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/render"
	"github.com/lherron/guildq/internal/store"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List imported projects",
	Long: `Lists projects ordered by name, optionally narrowed to one chapter or
one cycle. --chapter accepts a chapter id or name; --cycle accepts a cycle
number within that chapter or a cycle id.

Examples:
  guildq projects                          # All projects
  guildq projects --chapter berlin         # Projects in one chapter
  guildq projects --chapter berlin --cycle 3 --json
  guildq projects --limit 20               # First page; next_cursor=... on stderr
  guildq projects --limit 20 --cursor <token>`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runProjects),
}

var (
	projectsChapter string
	projectsCycle   string
	projectsJSON    bool
	projectsYAML    bool
	projectsLimit   int
	projectsCursor  string
)

func init() {
	rootCmd.AddCommand(projectsCmd)

	projectsCmd.Flags().StringVar(&projectsChapter, "chapter", "", "Only projects in this chapter (id or name)")
	projectsCmd.Flags().StringVar(&projectsCycle, "cycle", "", "Only projects in this cycle (number or id, requires --chapter)")
	projectsCmd.Flags().BoolVar(&projectsJSON, "json", false, "Output as JSON")
	projectsCmd.Flags().BoolVar(&projectsYAML, "yaml", false, "Output as YAML")
	projectsCmd.Flags().IntVar(&projectsLimit, "limit", 0, "Maximum number of results to return (0 = no limit)")
	projectsCmd.Flags().StringVar(&projectsCursor, "cursor", "", "Pagination cursor from previous page")
}

func runProjects(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var filter store.ProjectFilter

	if projectsCycle != "" && projectsChapter == "" {
		return exitError(ExitValidation, fmt.Errorf("--cycle requires --chapter"))
	}

	if projectsChapter != "" {
		chapter, err := app.Store.Chapters.Get(ctx, projectsChapter)
		if err != nil {
			return err
		}
		if chapter == nil {
			return exitError(ExitNotFound, fmt.Errorf("chapter not found: %s", projectsChapter))
		}
		filter.ChapterID = chapter.ID

		if projectsCycle != "" {
			cycle, err := app.Store.Cycles.GetForChapter(ctx, chapter.ID, projectsCycle)
			if err != nil {
				return err
			}
			if cycle == nil {
				return exitError(ExitNotFound, fmt.Errorf("cycle %s not found in chapter %s", projectsCycle, chapter.Name))
			}
			filter.CycleID = cycle.ID
		}
	}

	if projectsCursor != "" {
		after, err := cursor.Decode(projectsCursor)
		if err != nil {
			return exitError(ExitValidation, err)
		}
		filter.After = after
	}
	if projectsLimit > 0 {
		// one extra row tells us whether another page exists
		filter.Limit = projectsLimit + 1
	}

	projects, err := app.Store.Projects.List(ctx, filter)
	if err != nil {
		return err
	}

	if projects == nil {
		projects = []domain.Project{}
	}

	if projectsLimit > 0 && len(projects) > projectsLimit {
		projects = projects[:projectsLimit]
		last := projects[len(projects)-1]
		next, err := cursor.New(store.ProjectSortFields, []interface{}{last.Name}, last.ID)
		if err != nil {
			return err
		}
		token, err := next.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "next_cursor=%s\n", token)
	}

	headers := []string{"ID", "NAME", "GOAL", "PLAYERS", "COACH", "ETAG"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		goal := "-"
		if p.Goal != nil {
			goal = fmt.Sprintf("%d", p.Goal.Number)
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			goal,
			dash(strings.Join(p.PlayerIDs, ",")),
			optionalString(p.CoachID),
			fmt.Sprintf("%d", p.ETag),
		})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
		Format: outputFormat(app.Config.Output, projectsJSON, projectsYAML),
	})
	return r.Render(projects, headers, rows)
}
