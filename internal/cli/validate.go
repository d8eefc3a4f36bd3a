package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willowtree-housing/willow/internal/validator"
)

// RecordReport holds the violations found in one record.
type RecordReport struct {
	File       string                `json:"file"`
	Index      int                   `json:"index"`
	ScenarioID string                `json:"scenario_id,omitempty"`
	Violations []validator.Violation `json:"violations"`
}

// ValidationSummary aggregates validation results across files.
type ValidationSummary struct {
	Valid             bool           `json:"valid"`
	RecordsProcessed  int            `json:"records_processed"`
	RecordsWithErrors int            `json:"records_with_errors"`
	TotalViolations   int            `json:"total_violations"`
	Records           []RecordReport `json:"records,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file-or-dir>",
		Short: "Validate scenario records against the vocabulary registry",
		Long: `Validate JSON scenario datasets against the data model and the loaded
vocabulary registry.

Accepts a single dataset file or a directory of .json dataset files. Every
violation in every record is reported; the command exits non-zero if any
record fails validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reg, err := loadRegistry(opts)
	if err != nil {
		_ = formatter.Error("E_REGISTRY", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load vocabulary registry", err)
	}

	files, err := FindDatasetFiles(path)
	if err != nil {
		_ = formatter.Error("E_PATH", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to resolve dataset path", err)
	}

	summary := ValidationSummary{Valid: true}
	for _, file := range files {
		records, err := LoadDataset(file)
		if err != nil {
			_ = formatter.Error("E_DATASET", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load dataset", err)
		}
		formatter.VerboseLog("Validating %d record(s) from %s", len(records), file)

		for i, rec := range records {
			summary.RecordsProcessed++
			result := validator.Validate(rec, reg)
			if result.Valid {
				continue
			}

			summary.Valid = false
			summary.RecordsWithErrors++
			summary.TotalViolations += len(result.Violations)

			id, _ := rec["scenario_id"].(string)
			summary.Records = append(summary.Records, RecordReport{
				File:       file,
				Index:      i,
				ScenarioID: id,
				Violations: result.Violations,
			})
		}
	}

	return outputValidationSummary(formatter, summary)
}

func outputValidationSummary(formatter *OutputFormatter, summary ValidationSummary) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary}
		if !summary.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_VALIDATION",
				Message: fmt.Sprintf("%d record(s) failed validation", summary.RecordsWithErrors),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
		if !summary.Valid {
			return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d violation(s)", summary.TotalViolations))
		}
		return nil
	}

	// Text format
	if summary.Valid {
		fmt.Fprintf(formatter.Writer, "✓ %d record(s) valid\n", summary.RecordsProcessed)
		return nil
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, rec := range summary.Records {
		label := rec.ScenarioID
		if label == "" {
			label = fmt.Sprintf("record %d", rec.Index)
		}
		fmt.Fprintf(formatter.Writer, "%s (%s)\n", label, rec.File)
		for _, v := range rec.Violations {
			fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", v.Code, v.FieldPath, v.Message)
		}
		fmt.Fprintln(formatter.Writer)
	}
	fmt.Fprintf(formatter.Writer, "%d of %d record(s) failed, %d violation(s) total\n",
		summary.RecordsWithErrors, summary.RecordsProcessed, summary.TotalViolations)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d violation(s)", summary.TotalViolations))
}
