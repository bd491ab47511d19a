// Package exporter writes classification runs to disk and to download
// streams.
//
// CSVWriter persists the latest run as resources/output.csv with the upload's
// columns plus target_label and no index column. EncodeRun streams the same
// content for downloads. WriteXLSX builds a workbook with a Results sheet and
// a Summary sheet holding the category bar chart and the source pie chart.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	path, err := w.WriteRun(run)
//
//	err = exporter.WriteXLSX(rw, run, insights.Summarize(run.Logs, run.ProcessingSeconds))
package exporter
