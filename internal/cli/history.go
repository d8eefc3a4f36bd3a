package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willowtree-housing/willow/internal/ledger"
)

// NewHistoryCommand creates the history command, which reads the merge
// audit ledger.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var ledgerPath string
	var limit int

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show recorded merge operations",
		Long:          "List merges recorded in the audit ledger, newest first.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, ledgerPath, limit, cmd)
		},
	}

	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "path to the SQLite audit ledger (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 = all)")
	_ = cmd.MarkFlagRequired("ledger")

	return cmd
}

func runHistory(rootOpts *RootOptions, ledgerPath string, limit int, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	l, err := ledger.Open(ledgerPath)
	if err != nil {
		_ = formatter.Error("E_LEDGER", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open merge ledger", err)
	}
	defer l.Close()

	entries, err := l.History(cmd.Context(), limit)
	if err != nil {
		_ = formatter.Error("E_LEDGER", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read merge history", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: entries})
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No merges recorded")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%s  %s  accepted=%d rejected=%d duplicates=%d total=%d\n",
			e.StartedAt, e.ID, e.Accepted, e.Rejected, e.Duplicates, e.MergedTotal)
	}
	return nil
}
