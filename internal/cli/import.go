package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/importer"
	"github.com/lherron/guildq/internal/render"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Create or update a project from identifiers",
	Long: `Import resolves the chapter, cycle, goal, players and coach, checks that
they belong together, and then creates a new project or merges into the
project named by --project.

Identifiers may be ids or human-readable names/handles. --cycle may be a
cycle number within the chapter or a cycle id; it defaults to the chapter's
latest cycle. A new project needs a goal and at least one player.

When --project names no existing project, a new project is created and the
identifier becomes its name.

Input can also be read from a YAML or JSON file with --file; flags given on
the command line override values from the file.`,
	Example: `  guildq import --chapter berlin --goal 42 --player alice --player carol --coach bob
  guildq import --project brave-otter --chapter berlin --player alice --diff
  guildq import --file import.yaml --json`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImport),
}

var (
	importProject     string
	importChapter     string
	importCycle       string
	importGoal        string
	importPlayers     []string
	importCoach       string
	importInitChannel bool
	importFile        string
	importJSON        bool
	importDiff        bool
	importTimeout     time.Duration
)

func init() {
	rootCmd.AddCommand(importCmd)
	addImportFlags(importCmd)
}

func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&importProject, "project", "", "Existing project id or name, or the name for a new project")
	cmd.Flags().StringVar(&importChapter, "chapter", "", "Chapter id or name (required)")
	cmd.Flags().StringVar(&importCycle, "cycle", "", "Cycle number or id (defaults to the latest cycle)")
	cmd.Flags().StringVar(&importGoal, "goal", "", "Goal number")
	cmd.Flags().StringArrayVar(&importPlayers, "player", nil, "Player id or handle (repeatable, order is kept)")
	cmd.Flags().StringVar(&importCoach, "coach", "", "Coach id or handle")
	cmd.Flags().BoolVar(&importInitChannel, "init-channel", false, "Initialize the project chat channel after the write")
	cmd.Flags().StringVarP(&importFile, "file", "f", "", "Read import input from a YAML or JSON file")
	cmd.Flags().BoolVar(&importJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&importDiff, "diff", false, "Print a diff of the project before and after the import")
	cmd.Flags().DurationVar(&importTimeout, "timeout", 0, "Abandon the import after this long (defaults to GUILDQ_IMPORT_TIMEOUT)")
}

type importOutput struct {
	Project      *domain.Project `json:"project" yaml:"project"`
	Created      bool            `json:"created" yaml:"created"`
	ChannelError string          `json:"channel_error,omitempty" yaml:"channel_error,omitempty"`
}

func runImport(app *appctx.App, cmd *cobra.Command, args []string) error {
	in, err := buildImportInput(cmd)
	if err != nil {
		return err
	}

	timeout := importTimeout
	if timeout <= 0 {
		timeout = app.Config.ImportTimeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var before interface{}
	if importDiff && in.ProjectIdentifier != "" {
		existing, err := app.Store.Projects.Get(ctx, in.ProjectIdentifier)
		if err != nil {
			return err
		}
		if existing != nil {
			before = existing
		}
	}

	res, err := app.Resolver().Import(ctx, in, importer.Options{InitializeChannel: importInitChannel})
	if err != nil {
		return err
	}

	out := importOutput{Project: res.Project, Created: res.Created}
	if res.ChannelErr != nil {
		out.ChannelError = res.ChannelErr.Error()
	}

	format := outputFormat(app.Config.Output, importJSON, false)
	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format})

	if importDiff {
		if err := r.RenderDiff(before, res.Project, "before", "after"); err != nil {
			return fmt.Errorf("failed to render diff: %w", err)
		}
	} else {
		verb := "Updated"
		if res.Created {
			verb = "Created"
		}
		if format == render.FormatTable {
			fmt.Fprintf(cmd.OutOrStdout(), "%s project %s\n\n", verb, res.Project.Name)
		}
		if err := r.Render(out, []string{"FIELD", "VALUE"}, projectRows(res.Project)); err != nil {
			return err
		}
	}

	if res.ChannelErr != nil {
		return fmt.Errorf("project %s was saved but %w", res.Project.Name, res.ChannelErr)
	}
	return nil
}

// buildImportInput reads --file when given and applies explicitly set flags
// on top of it.
func buildImportInput(cmd *cobra.Command) (importer.Input, error) {
	var in importer.Input
	if importFile != "" {
		data, err := os.ReadFile(importFile)
		if err != nil {
			return in, fmt.Errorf("failed to read %s: %w", importFile, err)
		}
		if err := decodeImportFile(importFile, data, &in); err != nil {
			return in, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("project") {
		in.ProjectIdentifier = importProject
	}
	if flags.Changed("chapter") {
		in.ChapterIdentifier = importChapter
	}
	if flags.Changed("cycle") {
		in.CycleIdentifier = importCycle
	}
	if flags.Changed("goal") {
		in.GoalIdentifier = importGoal
	}
	if flags.Changed("player") {
		in.PlayerIdentifiers = append([]string{}, importPlayers...)
	}
	if flags.Changed("coach") {
		in.CoachIdentifier = importCoach
	}

	if strings.TrimSpace(in.ChapterIdentifier) == "" {
		return in, exitError(ExitValidation, fmt.Errorf("--chapter is required"))
	}
	return in, nil
}

func decodeImportFile(path string, data []byte, in *importer.Input) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, in); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, in); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return nil
}

func projectRows(p *domain.Project) [][]string {
	goal := "-"
	if p.Goal != nil {
		goal = fmt.Sprintf("%d %s", p.Goal.Number, p.Goal.Title)
	}
	players := "-"
	if len(p.PlayerIDs) > 0 {
		players = strings.Join(p.PlayerIDs, ", ")
	}
	return [][]string{
		{"id", p.ID},
		{"name", p.Name},
		{"chapter_id", p.ChapterID},
		{"cycle_id", p.CycleID},
		{"goal", goal},
		{"players", players},
		{"coach", optionalString(p.CoachID)},
		{"etag", fmt.Sprintf("%d", p.ETag)},
		{"updated_at", p.UpdatedAt.Format(time.RFC3339)},
	}
}
