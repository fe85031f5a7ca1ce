package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/lherron/guildq/internal/bulk"
	"github.com/lherron/guildq/internal/cli/appctx"
	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/importer"
	"github.com/lherron/guildq/internal/render"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var importBatchCmd = &cobra.Command{
	Use:   "import-batch <file>",
	Short: "Run many imports from a YAML or JSON list",
	Long: `Reads a list of imports (the same fields as 'guildq import --file') and
runs each one. Every import is checked and written on its own; a failed
import does not undo the ones before it.

By default the run stops at the first failure. With --continue-on-error all
imports are attempted and the command exits 5 when some succeeded and some
did not.`,
	Example: `  guildq import-batch cycle-3.yaml --jobs 4 --continue-on-error`,
	Args:    cobra.ExactArgs(1),
	RunE:    appctx.WithApp(appctx.DefaultOptions(), runImportBatch),
}

var (
	importBatchJobs            int
	importBatchContinueOnError bool
	importBatchInitChannel     bool
	importBatchJSON            bool
)

func init() {
	rootCmd.AddCommand(importBatchCmd)

	importBatchCmd.Flags().IntVarP(&importBatchJobs, "jobs", "j", 1, "Number of imports to run at once (0 = one per CPU)")
	importBatchCmd.Flags().BoolVar(&importBatchContinueOnError, "continue-on-error", false, "Keep going after a failed import")
	importBatchCmd.Flags().BoolVar(&importBatchInitChannel, "init-channel", false, "Initialize chat channels for every written project")
	importBatchCmd.Flags().BoolVar(&importBatchJSON, "json", false, "Output as JSON")
}

type batchItemOutput struct {
	Index        int             `json:"index" yaml:"index"`
	Status       string          `json:"status" yaml:"status"`
	Project      *domain.Project `json:"project,omitempty" yaml:"project,omitempty"`
	Created      bool            `json:"created" yaml:"created"`
	Error        string          `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ChannelError string          `json:"channel_error,omitempty" yaml:"channel_error,omitempty"`
}

func runImportBatch(app *appctx.App, cmd *cobra.Command, args []string) error {
	inputs, err := readBatchFile(args[0])
	if err != nil {
		return exitError(ExitValidation, err)
	}

	labels := make([]string, len(inputs))
	for i, in := range inputs {
		name := in.ProjectIdentifier
		if name == "" {
			name = "(new)"
		}
		labels[i] = fmt.Sprintf("#%d %s", i+1, name)
	}

	resolver := app.Resolver()
	results := make([]*importer.Result, len(inputs))
	op := &bulk.Operation{
		Jobs:            importBatchJobs,
		ContinueOnError: importBatchContinueOnError,
	}
	if !importBatchJSON {
		op.Progress = cmd.ErrOrStderr()
	}

	res := op.Execute(cmd.Context(), labels, func(ctx context.Context, i int) error {
		ctx, cancel := context.WithTimeout(ctx, app.Config.ImportTimeout)
		defer cancel()

		r, err := resolver.Import(ctx, inputs[i], importer.Options{InitializeChannel: importBatchInitChannel})
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})

	outputs := make([]batchItemOutput, len(inputs))
	rows := make([][]string, 0, len(inputs))
	for i, outcome := range res.Outcomes {
		out := batchItemOutput{Index: i + 1}
		switch {
		case outcome.Skipped:
			out.Status = "skipped"
		case outcome.Err != nil:
			out.Status = "failed"
			out.Error = outcome.Err.Error()
			out.ErrorKind = string(domain.KindOf(outcome.Err))
		default:
			out.Status = "updated"
			out.Project = results[i].Project
			out.Created = results[i].Created
			if out.Created {
				out.Status = "created"
			}
			if results[i].ChannelErr != nil {
				out.ChannelError = results[i].ChannelErr.Error()
			}
		}
		outputs[i] = out

		project := "-"
		if out.Project != nil {
			project = out.Project.Name
		}
		detail := out.Error
		if detail == "" {
			detail = out.ChannelError
		}
		rows = append(rows, []string{fmt.Sprintf("%d", out.Index), out.Status, project, dash(detail)})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
		Format: outputFormat(app.Config.Output, importBatchJSON, false),
	})
	if err := r.Render(outputs, []string{"#", "STATUS", "PROJECT", "DETAIL"}, rows); err != nil {
		return err
	}
	if r.Format() == render.FormatTable {
		res.PrintSummary(cmd.OutOrStdout())
	}

	if code := res.ExitCode(); code != bulk.ExitAllSucceeded {
		return exitError(code, fmt.Errorf("%d of %d imports did not complete", res.Failed+res.Skipped, res.TotalItems))
	}
	return nil
}

// readBatchFile decodes a list of imports. Both a bare list and a mapping
// with an "imports" key are accepted; JSON files parse as YAML.
func readBatchFile(path string) ([]importer.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%s contains no imports", path)
	}

	var list []importer.Input
	switch root := doc.Content[0]; root.Kind {
	case yaml.SequenceNode:
		err = root.Decode(&list)
	case yaml.MappingNode:
		var wrapped struct {
			Imports []importer.Input `yaml:"imports"`
		}
		err = root.Decode(&wrapped)
		list = wrapped.Imports
	default:
		err = fmt.Errorf("expected a list of imports")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s contains no imports", path)
	}
	return list, nil
}
