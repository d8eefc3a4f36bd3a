package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willowtree-housing/willow/internal/ledger"
	"github.com/willowtree-housing/willow/internal/merge"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	OutputPath string
	ReportPath string
	LedgerPath string
	Advisory   bool
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge <canonical> <incoming>...",
		Short: "Merge incoming batches into a canonical dataset",
		Long: `Merge one or more incoming record batches into a canonical dataset.

Incoming records are validated, de-duplicated against the canonical dataset
and each other (first seen wins, in argument order), and appended to the
canonical sequence. Accepted records are stamped validation_status=validated.
Rejected records never abort the merge; they are reported. The command exits
non-zero if any record was rejected unless --advisory is set.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(rootOpts, opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "merged dataset output file (required)")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "write the JSON merge report to this file")
	cmd.Flags().StringVar(&opts.LedgerPath, "ledger", "", "record the merge in this SQLite audit ledger")
	cmd.Flags().BoolVar(&opts.Advisory, "advisory", false, "exit 0 even when records were rejected")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMerge(rootOpts *RootOptions, opts *MergeOptions, canonicalPath string, incomingPaths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	reg, err := loadRegistry(rootOpts)
	if err != nil {
		_ = formatter.Error("E_REGISTRY", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load vocabulary registry", err)
	}

	canonical, err := LoadDataset(canonicalPath)
	if err != nil {
		_ = formatter.Error("E_DATASET", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load canonical dataset", err)
	}
	formatter.VerboseLog("Loaded canonical dataset: %d record(s)", len(canonical))

	// Batch order is argument order; it is part of the deterministic
	// duplicate-resolution contract.
	batches := make([]merge.Batch, 0, len(incomingPaths))
	for _, path := range incomingPaths {
		records, err := LoadDataset(path)
		if err != nil {
			_ = formatter.Error("E_DATASET", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load incoming batch", err)
		}
		formatter.VerboseLog("Loaded batch %s: %d record(s)", path, len(records))
		batches = append(batches, merge.Batch(records))
	}

	result, err := merge.Merge(reg, canonical, batches...)
	if err != nil {
		// Corrupt canonical dataset is fatal to the merge call.
		_ = formatter.Error("E_CORRUPT_CANONICAL", err.Error(), nil)
		return WrapExitError(ExitCommandError, "merge refused", err)
	}

	if err := SaveDataset(opts.OutputPath, result.Merged(canonical)); err != nil {
		_ = formatter.Error("E_OUTPUT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write merged dataset", err)
	}

	report := result.BuildReport(len(canonical))

	if opts.ReportPath != "" {
		if err := saveReport(opts.ReportPath, report); err != nil {
			_ = formatter.Error("E_OUTPUT", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write merge report", err)
		}
	}

	if opts.LedgerPath != "" {
		if err := recordInLedger(cmd, opts.LedgerPath, report, formatter); err != nil {
			return err
		}
	}

	return outputMergeReport(formatter, report, opts.Advisory)
}

func saveReport(path string, report merge.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode merge report: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func recordInLedger(cmd *cobra.Command, path string, report merge.Report, formatter *OutputFormatter) error {
	l, err := ledger.Open(path)
	if err != nil {
		_ = formatter.Error("E_LEDGER", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open merge ledger", err)
	}
	defer l.Close()

	mergeID, err := l.RecordMerge(cmd.Context(), report)
	if err != nil {
		_ = formatter.Error("E_LEDGER", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to record merge", err)
	}
	formatter.VerboseLog("Recorded merge %s in ledger %s", mergeID, path)
	return nil
}

func outputMergeReport(formatter *OutputFormatter, report merge.Report, advisory bool) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if report.RejectedCount > 0 && !advisory {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_REJECTED",
				Message: fmt.Sprintf("%d record(s) rejected", report.RejectedCount),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
		if report.RejectedCount > 0 && !advisory {
			return NewExitError(ExitFailure, fmt.Sprintf("merge rejected %d record(s)", report.RejectedCount))
		}
		return nil
	}

	// Text format
	fmt.Fprintf(formatter.Writer, "Accepted:   %d\n", report.AcceptedCount)
	fmt.Fprintf(formatter.Writer, "Rejected:   %d\n", report.RejectedCount)
	fmt.Fprintf(formatter.Writer, "Duplicates: %d\n", len(report.DuplicateIDs))
	fmt.Fprintf(formatter.Writer, "Total:      %d\n", report.MergedTotal)

	if report.RejectedCount > 0 {
		fmt.Fprintln(formatter.Writer)
		for _, rej := range report.Rejected {
			id, _ := rej.Record["scenario_id"].(string)
			if id == "" {
				id = "(no scenario_id)"
			}
			fmt.Fprintf(formatter.Writer, "✗ %s\n", id)
			for _, v := range rej.Violations {
				fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", v.Code, v.FieldPath, v.Message)
			}
		}
		if !advisory {
			return NewExitError(ExitFailure, fmt.Sprintf("merge rejected %d record(s)", report.RejectedCount))
		}
	}
	return nil
}
