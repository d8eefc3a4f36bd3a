package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willowtree-housing/willow/internal/generator"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	Template      string
	Count         int
	Seed          int64
	PoolPath      string
	TemplatesPath string
	OutputPath    string
}

// GenerateSummary reports what a generate run produced.
type GenerateSummary struct {
	Template    string   `json:"template"`
	Count       int      `json:"count"`
	Seed        int64    `json:"seed"`
	ScenarioIDs []string `json:"scenario_ids"`
	OutputPath  string   `json:"output_path"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate scenario records from a template",
		Long: `Generate synthetic scenario records from a template and a microresponse
pool.

Generation is deterministic: the same template, pool, and seed reproduce the
same dialogue and scenario IDs; metadata timestamps record when the run
happened. Record i of a run uses seed+i, so a run of N records is
reproducible record-by-record. Every generated record is guaranteed to pass
validation.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "template name (required)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of records to generate")
	cmd.Flags().Int64VarP(&opts.Seed, "seed", "s", 0, "base RNG seed")
	cmd.Flags().StringVar(&opts.PoolPath, "pool", "", "path to a microresponse pool YAML (default: embedded pool)")
	cmd.Flags().StringVar(&opts.TemplatesPath, "templates", "", "path to a templates YAML (default: embedded templates)")
	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "output dataset file (required)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runGenerate(rootOpts *RootOptions, opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if opts.Count < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("count must be positive, got %d", opts.Count))
	}

	reg, err := loadRegistry(rootOpts)
	if err != nil {
		_ = formatter.Error("E_REGISTRY", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load vocabulary registry", err)
	}

	templates := generator.DefaultTemplates()
	if opts.TemplatesPath != "" {
		templates, err = generator.LoadTemplates(opts.TemplatesPath)
		if err != nil {
			_ = formatter.Error("E_TEMPLATES", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load templates", err)
		}
	}
	tmpl, err := generator.FindTemplate(templates, opts.Template)
	if err != nil {
		_ = formatter.Error("E_TEMPLATES", err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown template", err)
	}

	pool := generator.DefaultPool()
	if opts.PoolPath != "" {
		pool, err = generator.LoadPool(opts.PoolPath)
		if err != nil {
			_ = formatter.Error("E_POOL", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load pool", err)
		}
	}

	gen := generator.New(reg)
	records := make([]map[string]any, 0, opts.Count)
	ids := make([]string, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		rec, err := gen.Generate(tmpl, pool, opts.Seed+int64(i))
		if err != nil {
			// Invariant failures are bug signals in template/pool data,
			// never silently swallowed.
			_ = formatter.Error("E_GENERATION", err.Error(), nil)
			return WrapExitError(ExitCommandError, "generation failed", err)
		}
		records = append(records, rec.ToMap())
		ids = append(ids, rec.ScenarioID)
		formatter.VerboseLog("Generated %s (seed=%d)", rec.ScenarioID, opts.Seed+int64(i))
	}

	if err := SaveDataset(opts.OutputPath, records); err != nil {
		_ = formatter.Error("E_OUTPUT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	summary := GenerateSummary{
		Template:    opts.Template,
		Count:       opts.Count,
		Seed:        opts.Seed,
		ScenarioIDs: ids,
		OutputPath:  opts.OutputPath,
	}
	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: summary})
	}
	fmt.Fprintf(formatter.Writer, "✓ Generated %d record(s) from template %q to %s\n",
		summary.Count, summary.Template, summary.OutputPath)
	return nil
}
