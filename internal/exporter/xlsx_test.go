package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"logclassifier/internal/insights"
)

func TestWriteXLSX(t *testing.T) {
	run := testRun()
	summary := insights.Summarize(run.Logs, 0.5)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, run, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetResults, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"source", "log_message", "target_label"}, rows[0])
	assert.Equal(t, "Workflow Error", rows[2][2])

	total, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	elapsed, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "0.50 sec", elapsed)

	share, err := f.GetCellValue(SheetSummary, "F5")
	require.NoError(t, err)
	assert.Equal(t, "50.0%", share)
}

func TestWriteXLSX_EmptyRun(t *testing.T) {
	run := testRun()
	run.Logs = nil

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, run, insights.Summarize(nil, 0)))
	assert.NotZero(t, buf.Len())
}
