package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willowtree-housing/willow/internal/merge"
	"github.com/willowtree-housing/willow/internal/schema"
)

func runMergeCommand(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewMergeCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestMergeCleanBatch(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{
		sampleRecord("scn-a1", "monday"),
	})
	batch := writeDataset(t, tmpDir, "batch.json", []map[string]any{
		sampleRecord("scn-a2", "tuesday"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")

	buf, err := runMergeCommand(t, "text", canonical, batch, "-o", outPath)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Accepted:   1")
	assert.Contains(t, output, "Rejected:   0")
	assert.Contains(t, output, "Total:      2")

	merged, err := LoadDataset(outPath)
	require.NoError(t, err)
	require.Len(t, merged, 2)
	// Append-only: the canonical record leads, unmodified.
	assert.Equal(t, "scn-a1", merged[0]["scenario_id"])
	assert.Equal(t, "pending_review", merged[0]["metadata"].(map[string]any)["validation_status"])
	assert.Equal(t, "scn-a2", merged[1]["scenario_id"])
	assert.Equal(t, schema.StatusValidated, merged[1]["metadata"].(map[string]any)["validation_status"])
}

func TestMergeDuplicateIDRejected(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{
		sampleRecord("scn-a1", "monday"),
	})
	batch := writeDataset(t, tmpDir, "batch.json", []map[string]any{
		sampleRecord("scn-a1", "tuesday"),
		sampleRecord("scn-a2", "wednesday"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")

	buf, err := runMergeCommand(t, "text", canonical, batch, "-o", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "Accepted:   1")
	assert.Contains(t, output, "Rejected:   1")
	assert.Contains(t, output, "Duplicates: 1")
	assert.Contains(t, output, "✗ scn-a1")
	assert.Contains(t, output, "DUPLICATE_ID")

	// The merged dataset is still written: rejections are reported, not fatal.
	merged, err := LoadDataset(outPath)
	require.NoError(t, err)
	assert.Len(t, merged, 2)
}

func TestMergeAdvisoryExitsZero(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{
		sampleRecord("scn-a1", "monday"),
	})
	batch := writeDataset(t, tmpDir, "batch.json", []map[string]any{
		sampleRecord("scn-a1", "tuesday"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")

	_, err := runMergeCommand(t, "text", canonical, batch, "-o", outPath, "--advisory")
	require.NoError(t, err)
}

func TestMergeJSONReport(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{
		sampleRecord("scn-a1", "monday"),
	})
	batch := writeDataset(t, tmpDir, "batch.json", []map[string]any{
		sampleRecord("scn-a1", "tuesday"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")

	buf, err := runMergeCommand(t, "json", canonical, batch, "-o", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_REJECTED", resp.Error.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, []any{"scn-a1"}, data["duplicate_ids"])
}

func TestMergeWritesReportFile(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{
		sampleRecord("scn-a1", "monday"),
	})
	batch := writeDataset(t, tmpDir, "batch.json", []map[string]any{
		sampleRecord("scn-a2", "tuesday"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")
	reportPath := filepath.Join(tmpDir, "report.json")

	_, err := runMergeCommand(t, "text", canonical, batch, "-o", outPath, "--report", reportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var report merge.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.AcceptedCount)
	assert.Equal(t, 0, report.RejectedCount)
	assert.Equal(t, 2, report.MergedTotal)
}

func TestMergeCorruptCanonical(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{
		sampleRecord("scn-a1", "monday"),
		sampleRecord("scn-a1", "tuesday"),
	})
	batch := writeDataset(t, tmpDir, "batch.json", []map[string]any{
		sampleRecord("scn-a2", "wednesday"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")

	buf, err := runMergeCommand(t, "text", canonical, batch, "-o", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "E_CORRUPT_CANONICAL")

	// No output is written when the merge refuses to run.
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeRecordsLedger(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{
		sampleRecord("scn-a1", "monday"),
	})
	batch := writeDataset(t, tmpDir, "batch.json", []map[string]any{
		sampleRecord("scn-a2", "tuesday"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")
	ledgerPath := filepath.Join(tmpDir, "ledger.db")

	_, err := runMergeCommand(t, "text", canonical, batch, "-o", outPath, "--ledger", ledgerPath)
	require.NoError(t, err)

	// The history command reads the merge back.
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewHistoryCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--ledger", ledgerPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "accepted=1 rejected=0 duplicates=0 total=2")
}

func TestMergeMultipleBatchesArgumentOrder(t *testing.T) {
	tmpDir := t.TempDir()
	canonical := writeDataset(t, tmpDir, "canonical.json", []map[string]any{})
	first := writeDataset(t, tmpDir, "first.json", []map[string]any{
		sampleRecord("scn-b1", "alpha"),
	})
	second := writeDataset(t, tmpDir, "second.json", []map[string]any{
		sampleRecord("scn-b1", "beta"),
	})
	outPath := filepath.Join(tmpDir, "merged.json")

	_, err := runMergeCommand(t, "text", canonical, first, second, "-o", outPath, "--advisory")
	require.NoError(t, err)

	merged, err := LoadDataset(outPath)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	// First seen wins: the earlier batch's record survives.
	assert.Contains(t, merged[0]["title"], "alpha")
}
